package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/hospital"
)

func price(v float64) *float64 { return &v }

// seedDemo fills an empty hospital with a small ward: two rooms, three
// patients, pharmacy stock and one of each workflow in flight.
func seedDemo(h *hospital.Hospital) error {
	for _, m := range []medication.Medication{
		{Name: "Amoxicillin", Price: 3.5, Stock: 40, LowStockThreshold: 10},
		{Name: "Paracetamol", Price: 1.2, Stock: 8, LowStockThreshold: 10},
		{Name: "Metformin", Price: 2.8, Stock: 25, LowStockThreshold: 5},
	} {
		if _, err := h.Medications.Add(m); err != nil {
			return err
		}
	}

	var beds []bed.Bed
	for _, loc := range [][2]string{{"101", "A"}, {"101", "B"}, {"102", "A"}, {"102", "B"}} {
		b, err := h.Beds.Add(bed.Bed{RoomNumber: loc[0], BedNumber: loc[1], Ward: "General"})
		if err != nil {
			return err
		}
		beds = append(beds, b)
	}

	var patients []patient.Patient
	for _, p := range []patient.Patient{
		{Name: "Ama Owusu", Age: 54, Gender: "F", Contact: "+233201112233", AssignedDoctor: "Dr. Mensah", BloodGroup: "O+"},
		{Name: "Kofi Boateng", Age: 67, Gender: "M", Contact: "kofi@example.com", AssignedDoctor: "Dr. Asante", Condition: patient.ConditionCritical},
		{Name: "Esi Addo", Age: 31, Gender: "F", Contact: "+233204445566", AssignedDoctor: "Dr. Mensah"},
	} {
		created, err := h.RegisterPatient(p)
		if err != nil {
			return err
		}
		patients = append(patients, created)
	}
	ama, kofi, esi := patients[0], patients[1], patients[2]

	if _, err := h.AssignBed(ama.ID, beds[0].ID); err != nil {
		return err
	}
	if _, err := h.AssignBed(kofi.ID, beds[2].ID); err != nil {
		return err
	}

	visit, err := h.CreateVisit(ama.ID, patient.Visit{Event: "Admission review", Details: "Fever, productive cough"})
	if err != nil {
		return err
	}
	rx, err := h.AddPrescription(ama.ID, visit.ID, prescription.Prescription{Medicine: "Amoxicillin", Dosage: "500mg three times daily"})
	if err != nil {
		return err
	}
	if _, err := h.DispensePrescription(rx.ID); err != nil {
		return err
	}
	lt, err := h.SendToLab(ama.ID, visit.ID, labtest.LabTest{TestName: "Full blood count", Price: price(25)})
	if err != nil {
		return err
	}
	if _, err := h.CreateInvoice(ama.ID, []hospital.ItemRef{
		{Type: billing.ItemPrescription, ID: rx.ID},
		{Type: billing.ItemLabTest, ID: lt.ID},
	}, time.Time{}); err != nil {
		return err
	}

	pending, err := h.AddPrescription(esi.ID, "", prescription.Prescription{Medicine: "Paracetamol", Dosage: "1g as needed"})
	if err != nil {
		return err
	}
	if _, err := h.ProposeSuggestion(pending.ID, prescription.Suggestion{Medicine: "Ibuprofen", Dosage: "400mg", ProposedBy: "pharmacy", Note: "paracetamol stock low"}); err != nil {
		return err
	}

	if _, err := h.SendMessage(messaging.Message{From: "Dr. Mensah", To: "Nurse Darko", Content: "Please repeat vitals in room 101", PatientID: ama.ID, VisitID: visit.ID}); err != nil {
		return err
	}
	if _, err := h.QueueCommunication(esi.ID, communication.MethodSMS, "Your prescription is being reviewed by the pharmacy."); err != nil {
		return err
	}

	c, err := h.RecordDeath(kofi.ID, "Cardiac arrest")
	if err != nil {
		return err
	}
	if _, err := h.DraftAutopsyReport(context.Background(), c.ID, ""); err != nil {
		return fmt.Errorf("draft autopsy report: %w", err)
	}
	return nil
}
