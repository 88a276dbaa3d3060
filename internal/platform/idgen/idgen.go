// Package idgen provides the id strategies used by the entity stores.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator hands out ids that are unique for the lifetime of the process.
type Generator interface {
	NewID() string
}

// Func adapts a function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }

// UUID returns a random (v4) uuid generator.
func UUID() Generator {
	return Func(func() string { return uuid.New().String() })
}

// Sequence returns a generator producing prefix-1, prefix-2, ... which keeps
// test fixtures reproducible. It is safe for concurrent use.
func Sequence(prefix string) Generator {
	return &sequence{prefix: prefix}
}

type sequence struct {
	prefix string
	n      atomic.Uint64
}

func (s *sequence) NewID() string {
	n := s.n.Add(1)
	if s.prefix == "" {
		return strconv.FormatUint(n, 10)
	}
	return s.prefix + "-" + strconv.FormatUint(n, 10)
}

// Timestamp returns a generator of millisecond timestamps with a random hex
// suffix, which sorts roughly by creation time.
func Timestamp(now func() time.Time) Generator {
	if now == nil {
		now = time.Now
	}
	return Func(func() string {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		return fmt.Sprintf("%d-%s", now().UnixMilli(), hex.EncodeToString(b[:]))
	})
}

// FromName resolves a configured strategy name. Unknown names fall back to
// uuid.
func FromName(name string) Generator {
	switch name {
	case "sequence":
		return Sequence("")
	case "timestamp":
		return Timestamp(nil)
	default:
		return UUID()
	}
}
