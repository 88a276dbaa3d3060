package hospital

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/drafting"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestHospital(t *testing.T, opts ...Option) *Hospital {
	t.Helper()
	clock := t0
	var mu sync.Mutex
	base := []Option{
		WithIDs(idgen.Sequence("")),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Minute)
			return clock
		}),
	}
	return New(append(base, opts...)...)
}

func mustPatient(t *testing.T, h *Hospital, name string) patient.Patient {
	t.Helper()
	p, err := h.RegisterPatient(patient.Patient{Name: name, Age: 40, AssignedDoctor: "Dr. Mensah", Contact: "+233200000000"})
	require.NoError(t, err)
	return p
}

func mustBed(t *testing.T, h *Hospital, room, number string) bed.Bed {
	t.Helper()
	b, err := h.Beds.Add(bed.Bed{RoomNumber: room, BedNumber: number, Ward: "General"})
	require.NoError(t, err)
	return b
}

func price(v float64) *float64 { return &v }

func TestAssignBed_ScenarioA(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	b := mustBed(t, h, "101", "A")
	assert.Equal(t, bed.StatusAvailable, b.Status)

	got, err := h.AssignBed(p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, bed.StatusOccupied, got.Status)
	assert.Equal(t, p.ID, got.PatientID)

	pp, _ := h.Patients.Get(p.ID)
	assert.True(t, pp.Admission.IsAdmitted)
	assert.Equal(t, "101", pp.Admission.RoomNumber)
	assert.Equal(t, "A", pp.Admission.BedNumber)
	assert.Empty(t, h.AvailableBeds())
}

func TestAssignBed_Rejections(t *testing.T) {
	h := newTestHospital(t)
	ada := mustPatient(t, h, "Ada")
	grace := mustPatient(t, h, "Grace")
	b := mustBed(t, h, "101", "A")
	_, err := h.AssignBed(ada.ID, b.ID)
	require.NoError(t, err)

	_, err = h.AssignBed(grace.ID, b.ID)
	assert.True(t, apperr.IsValidation(err), "occupied bed")

	_, err = h.AssignBed("nobody", b.ID)
	assert.True(t, apperr.IsValidation(err))
	_, err = h.AssignBed(grace.ID, "nowhere")
	assert.True(t, apperr.IsValidation(err))

	again, err := h.AssignBed(ada.ID, b.ID)
	require.NoError(t, err, "re-assigning the held bed is a no-op")
	assert.Equal(t, ada.ID, again.PatientID)
}

func TestAssignBed_TransferIsAtomicForObservers(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	first := mustBed(t, h, "101", "A")
	second := mustBed(t, h, "102", "B")
	_, err := h.AssignBed(p.ID, first.ID)
	require.NoError(t, err)

	var calls int
	h.Beds.SubscribeFunc(func(beds []bed.Bed) {
		calls++
		var held int
		for _, b := range beds {
			if b.PatientID == p.ID {
				held++
			}
		}
		assert.Equal(t, 1, held, "patient visible in exactly one bed")
		pp, _ := h.Patients.Get(p.ID)
		assert.Equal(t, "102", pp.Admission.RoomNumber, "admission already updated when beds notify")
	})

	_, err = h.AssignBed(p.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	old, _ := h.Beds.Get(first.ID)
	assert.Equal(t, bed.StatusAvailable, old.Status)
	assert.Empty(t, old.PatientID)
}

func TestAssignBed_SubscriberDelivery(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	b := mustBed(t, h, "101", "A")

	var first, second int
	var seen []bed.Bed
	h.Beds.SubscribeFunc(func(beds []bed.Bed) {
		first++
		seen = beds
	})
	unsubscribe := h.Beds.SubscribeFunc(func([]bed.Bed) { second++ })
	unsubscribe()

	_, err := h.AssignBed(p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	require.Len(t, seen, 1)
	assert.Equal(t, bed.StatusOccupied, seen[0].Status)
}

func TestAssignBed_FromInsideListener(t *testing.T) {
	h := newTestHospital(t)
	b := mustBed(t, h, "101", "A")

	var assigned bool
	var bedsAtNotify []bed.Bed
	h.Patients.SubscribeFunc(func(ps []patient.Patient) {
		if assigned || len(ps) != 1 {
			return
		}
		assigned = true
		_, err := h.AssignBed(ps[0].ID, b.ID)
		assert.NoError(t, err)
		bedsAtNotify = h.Beds.GetAll()
	})

	p := mustPatient(t, h, "Ada")
	require.True(t, assigned)
	require.Len(t, bedsAtNotify, 1)
	assert.Equal(t, p.ID, bedsAtNotify[0].PatientID)
	got, _ := h.Patients.Get(p.ID)
	assert.Equal(t, b.ID, got.Admission.BedID)
}

func TestAssignBed_RejectionDoesNotNotify(t *testing.T) {
	h := newTestHospital(t)
	ada := mustPatient(t, h, "Ada")
	grace := mustPatient(t, h, "Grace")
	b := mustBed(t, h, "101", "A")
	_, _ = h.AssignBed(ada.ID, b.ID)

	var calls int
	h.Beds.SubscribeFunc(func([]bed.Bed) { calls++ })
	h.Patients.SubscribeFunc(func([]patient.Patient) { calls++ })

	_, err := h.AssignBed(grace.ID, b.ID)
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestAssignBed_ConcurrentClaimsOneWinner(t *testing.T) {
	h := newTestHospital(t)
	b := mustBed(t, h, "101", "A")
	var ids []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		ids = append(ids, mustPatient(t, h, name).ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins int
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := h.AssignBed(id, b.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Len(t, h.Patients.Filter(func(p patient.Patient) bool { return p.Admission.IsAdmitted }), 1)
}

func TestReleaseAndDischarge(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	b := mustBed(t, h, "101", "A")
	_, _ = h.AssignBed(p.ID, b.ID)

	_, err := h.DeleteBed(b.ID)
	assert.True(t, apperr.IsValidation(err), "occupied bed cannot be deleted")

	outcome, err := h.Discharge(p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)
	pp, _ := h.Patients.Get(p.ID)
	assert.False(t, pp.Admission.IsAdmitted)

	outcome, err = h.ReleaseBed(b.ID)
	assert.True(t, apperr.IsValidation(err), "bed already free")
	assert.Equal(t, store.Rejected, outcome)

	outcome, err = h.ReleaseBed("missing")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
	outcome, err = h.Discharge("missing")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)

	_, _ = h.AssignBed(p.ID, b.ID)
	outcome, err = h.ReleaseBed(b.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	outcome, err = h.DeleteBed(b.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Removed, outcome)
}

func TestDirectEditsCannotBreakOccupancy(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	b := mustBed(t, h, "101", "A")
	_, _ = h.AssignBed(p.ID, b.ID)

	_, err := h.Beds.Update(b.ID, func(b *bed.Bed) error {
		b.Status = bed.StatusAvailable
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = h.Patients.Update(p.ID, func(p *patient.Patient) error {
		p.Admission.IsAdmitted = false
		return nil
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestRecordDeath(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "John")
	b := mustBed(t, h, "101", "A")
	_, _ = h.AssignBed(p.ID, b.ID)

	outcome, err := h.UpdateCondition(p.ID, patient.ConditionDeceased)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	pp, _ := h.Patients.Get(p.ID)
	assert.Equal(t, patient.ConditionDeceased, pp.Condition)
	assert.NotNil(t, pp.DeceasedAt)
	assert.False(t, pp.Admission.IsAdmitted)
	freed, _ := h.Beds.Get(b.ID)
	assert.Equal(t, bed.StatusAvailable, freed.Status)

	c, ok := h.Autopsies.ForPatient(p.ID)
	require.True(t, ok)
	assert.Equal(t, autopsy.StatusAwaiting, c.Status)
	assert.Equal(t, "John", c.SubjectName)

	_, err = h.UpdateCondition(p.ID, patient.ConditionStable)
	assert.True(t, apperr.IsValidation(err))
	_, err = h.AssignBed(p.ID, b.ID)
	assert.True(t, apperr.IsValidation(err))
	_, err = h.RecordDeath(p.ID, "")
	assert.True(t, apperr.IsValidation(err))

	outcome, err = h.UpdateCondition("missing", patient.ConditionDeceased)
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)

	cert, err := h.DeathCertificate(p.ID)
	require.NoError(t, err)
	assert.Contains(t, string(cert), "CERTIFICATE OF DEATH")
}

func TestUpdateCondition(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")

	outcome, err := h.UpdateCondition(p.ID, patient.ConditionCritical)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	_, err = h.UpdateCondition(p.ID, "Unknown")
	assert.True(t, apperr.IsValidation(err))

	outcome, err = h.UpdateCondition("missing", patient.ConditionStable)
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
}

func TestReset(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")
	b := mustBed(t, h, "101", "A")
	_, err := h.AssignBed(p.ID, b.ID)
	require.NoError(t, err)
	_, err = h.Medications.Add(medication.Medication{Name: "Amoxicillin", Price: 4, Stock: 10})
	require.NoError(t, err)

	var notified bool
	bedsAtNotify := -1
	h.Patients.SubscribeFunc(func(ps []patient.Patient) {
		notified = len(ps) == 0
		bedsAtNotify = h.Beds.Len()
	})
	h.Reset()

	assert.True(t, notified)
	assert.Zero(t, bedsAtNotify, "every store is cleared before listeners run")
	assert.Zero(t, h.Patients.Len())
	assert.Zero(t, h.Beds.Len())
	assert.Zero(t, h.Medications.Len())
}

func TestReset_SerializesWithOperations(t *testing.T) {
	h := newTestHospital(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p, err := h.RegisterPatient(patient.Patient{Name: "Ada"})
			if err != nil {
				return
			}
			b, err := h.Beds.Add(bed.Bed{RoomNumber: "101", BedNumber: p.ID})
			if err != nil {
				return
			}
			_, _ = h.AssignBed(p.ID, b.ID)
		}()
		go func() {
			defer wg.Done()
			h.Reset()
		}()
	}
	wg.Wait()

	beds := map[string]bed.Bed{}
	for _, b := range h.Beds.GetAll() {
		beds[b.ID] = b
	}
	admitted := map[string]bool{}
	for _, p := range h.Patients.GetAll() {
		if !p.Admission.IsAdmitted {
			continue
		}
		admitted[p.ID] = true
		b, ok := beds[p.Admission.BedID]
		if assert.True(t, ok, "admitted patient %s has no bed", p.ID) {
			assert.Equal(t, p.ID, b.PatientID)
		}
	}
	for _, b := range beds {
		if b.Occupied() {
			assert.True(t, admitted[b.PatientID], "bed %s occupied by a missing patient", b.ID)
		}
	}
}

func TestDraftAutopsyReport(t *testing.T) {
	calls := 0
	fail := true
	drafter := drafting.Func(func(_ context.Context, req drafting.Request) (string, error) {
		calls++
		if fail {
			return "", errors.New("model unavailable")
		}
		return "Report for " + req.Subject, nil
	})
	h := newTestHospital(t, WithDrafter(drafter))
	p := mustPatient(t, h, "John")
	c, err := h.RecordDeath(p.ID, "Cardiac arrest")
	require.NoError(t, err)

	var notified int
	h.Autopsies.SubscribeFunc(func([]autopsy.Case) { notified++ })

	_, err = h.DraftAutopsyReport(context.Background(), c.ID, "")
	assert.True(t, apperr.IsCollaborator(err))
	unchanged, _ := h.Autopsies.Get(c.ID)
	assert.Equal(t, c, unchanged)
	assert.Zero(t, notified)

	fail = false
	updated, err := h.DraftAutopsyReport(context.Background(), c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, autopsy.StatusReportPending, updated.Status)
	assert.Equal(t, "Report for John", updated.Report)
	assert.Equal(t, 1, notified)
	assert.Equal(t, 2, calls)

	_, err = h.DraftAutopsyReport(context.Background(), "missing", "")
	assert.True(t, apperr.IsNotFound(err))

	doc, err := h.AutopsyReport(c.ID)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Report for John")
}

func TestDraftReferralLetter(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")

	letter, err := h.DraftReferralLetter(context.Background(), p.ID, ReferralInput{To: "Cardiology", Reason: "Chest pain on exertion"})
	require.NoError(t, err)
	assert.Contains(t, string(letter), "To: Cardiology")
	assert.Contains(t, string(letter), "Referral letter for Ada")

	_, err = h.DraftReferralLetter(context.Background(), p.ID, ReferralInput{})
	assert.True(t, apperr.IsValidation(err))

	card, err := h.IDCard(p.ID)
	require.NoError(t, err)
	assert.Contains(t, string(card), "Ada")
}

func TestQueueCommunication(t *testing.T) {
	h := newTestHospital(t)
	p := mustPatient(t, h, "Ada")

	c, err := h.QueueCommunication(p.ID, "SMS", "Your results are ready")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.PatientName)
	assert.Equal(t, "+233200000000", c.Recipient)

	_, err = h.QueueCommunication("missing", "SMS", "x")
	assert.True(t, apperr.IsValidation(err))
}

func TestInvoiceItemTypes(t *testing.T) {
	assert.True(t, billing.ItemPrescription.Valid())
	assert.False(t, billing.ItemType("scan").Valid())
	_, err := newTestHospital(t).CreateInvoice("p", []ItemRef{{Type: "scan", ID: "1"}}, time.Time{})
	assert.True(t, apperr.IsValidation(err))
}
