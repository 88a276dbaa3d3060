package hospital

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/notification"
	"github.com/ehr/wardstate/pkg/pagination"
)

// Dispatcher delivers queued communications.
type Dispatcher interface {
	Dispatch(ctx context.Context) (notification.Report, error)
}

// Handler exposes the hospital over HTTP for the ward console.
type Handler struct {
	h          *Hospital
	dispatcher Dispatcher
}

// NewHandler creates a Handler. A nil dispatcher disables the dispatch
// endpoint.
func NewHandler(h *Hospital, dispatcher Dispatcher) *Handler {
	return &Handler{h: h, dispatcher: dispatcher}
}

func (hd *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", hd.ListPatients)
	api.POST("/patients", hd.RegisterPatient)
	api.GET("/patients/:id", hd.GetPatientRecord)
	api.PUT("/patients/:id/condition", hd.UpdateCondition)
	api.POST("/patients/:id/death", hd.RecordDeath)
	api.POST("/patients/:id/discharge", hd.Discharge)
	api.GET("/patients/:id/visits", hd.VisitTimeline)
	api.POST("/patients/:id/visits", hd.CreateVisit)
	api.PUT("/patients/:id/visits/:visitID", hd.EditVisitDetails)
	api.POST("/patients/:id/prescriptions", hd.AddPrescription)
	api.POST("/patients/:id/lab-tests", hd.SendToLab)
	api.GET("/patients/:id/billable", hd.BillableItems)
	api.POST("/patients/:id/invoices", hd.CreateInvoice)
	api.POST("/patients/:id/communications", hd.QueueCommunication)
	api.GET("/patients/:id/id-card", hd.IDCard)
	api.GET("/patients/:id/death-certificate", hd.DeathCertificate)
	api.POST("/patients/:id/referral-letter", hd.DraftReferralLetter)

	api.GET("/beds", hd.ListBeds)
	api.POST("/beds", hd.AddBed)
	api.GET("/beds/available", hd.AvailableBeds)
	api.GET("/rooms", hd.RoomOccupancy)
	api.POST("/beds/:id/assign", hd.AssignBed)
	api.POST("/beds/:id/release", hd.ReleaseBed)
	api.DELETE("/beds/:id", hd.DeleteBed)

	api.GET("/prescriptions", hd.ListPrescriptions)
	api.GET("/prescriptions/suggestions", hd.PendingSuggestions)
	api.PUT("/prescriptions/:id/status", hd.UpdatePrescriptionStatus)
	api.POST("/prescriptions/:id/suggestion", hd.ProposeSuggestion)
	api.POST("/prescriptions/:id/suggestion/resolve", hd.ResolveSuggestion)
	api.POST("/prescriptions/:id/dispense", hd.DispensePrescription)

	api.GET("/lab-tests", hd.ListLabTests)
	api.PUT("/lab-tests/:id/status", hd.UpdateLabTestStatus)
	api.PUT("/lab-tests/:id/results", hd.RecordLabResults)
	api.PUT("/lab-tests/:id/price", hd.SetLabTestPrice)

	api.GET("/invoices", hd.ListInvoices)
	api.POST("/invoices/:id/pay", hd.MarkInvoicePaid)
	api.POST("/invoices/refresh-overdue", hd.RefreshOverdue)

	api.GET("/medications", hd.ListMedications)
	api.GET("/medications/low-stock", hd.LowStockMedications)
	api.POST("/medications", hd.AddMedication)
	api.POST("/medications/:id/stock", hd.AdjustStock)

	api.GET("/communications", hd.ListCommunications)
	api.POST("/communications/dispatch", hd.DispatchCommunications)

	api.GET("/messages", hd.ListMessages)
	api.POST("/messages", hd.SendMessage)
	api.POST("/messages/read", hd.MarkMessagesRead)
	api.GET("/conversations", hd.Conversations)

	api.GET("/autopsies", hd.ListAutopsies)
	api.PUT("/autopsies/:id/notes", hd.UpdateAutopsyNotes)
	api.POST("/autopsies/:id/draft", hd.DraftAutopsyReport)
	api.POST("/autopsies/:id/complete", hd.CompleteAutopsy)
	api.GET("/autopsies/:id/report", hd.AutopsyReport)

	api.POST("/reset", hd.Reset)
}

// httpError maps the failure kinds onto status codes.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case apperr.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperr.KindCollaborator:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// outcome answers an update-style operation: 204 when something changed,
// 404 when the id was unknown.
func outcome(c echo.Context, o store.Outcome, err error) error {
	if err != nil {
		return httpError(err)
	}
	if o == store.NotFound {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func page[T any](c echo.Context, items []T) error {
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func document(c echo.Context, doc []byte, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, doc)
}

// -- Patients --

func (hd *Handler) ListPatients(c echo.Context) error {
	if doctor := c.QueryParam("admitted_by"); doctor != "" {
		return page(c, hd.h.AdmittedPatientsByDoctor(doctor))
	}
	return page(c, hd.h.Patients.GetAll())
}

func (hd *Handler) RegisterPatient(c echo.Context) error {
	var p patient.Patient
	if err := bind(c, &p); err != nil {
		return err
	}
	created, err := hd.h.RegisterPatient(p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) GetPatientRecord(c echo.Context) error {
	rec, ok := hd.h.PatientRecord(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (hd *Handler) UpdateCondition(c echo.Context) error {
	var req struct {
		Condition patient.Condition `json:"condition"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.UpdateCondition(c.Param("id"), req.Condition)
	return outcome(c, o, err)
}

func (hd *Handler) RecordDeath(c echo.Context) error {
	var req struct {
		Cause string `json:"cause"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := hd.h.RecordDeath(c.Param("id"), req.Cause)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) Discharge(c echo.Context) error {
	o, err := hd.h.Discharge(c.Param("id"))
	return outcome(c, o, err)
}

func (hd *Handler) VisitTimeline(c echo.Context) error {
	if _, ok := hd.h.Patients.Get(c.Param("id")); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, hd.h.VisitTimeline(c.Param("id")))
}

func (hd *Handler) CreateVisit(c echo.Context) error {
	var v patient.Visit
	if err := bind(c, &v); err != nil {
		return err
	}
	created, err := hd.h.CreateVisit(c.Param("id"), v)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) EditVisitDetails(c echo.Context) error {
	var req struct {
		Details string `json:"details"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.EditVisitDetails(c.Param("id"), c.Param("visitID"), req.Details)
	return outcome(c, o, err)
}

func (hd *Handler) AddPrescription(c echo.Context) error {
	var rx prescription.Prescription
	if err := bind(c, &rx); err != nil {
		return err
	}
	created, err := hd.h.AddPrescription(c.Param("id"), rx.VisitID, rx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) SendToLab(c echo.Context) error {
	var lt labtest.LabTest
	if err := bind(c, &lt); err != nil {
		return err
	}
	created, err := hd.h.SendToLab(c.Param("id"), lt.VisitID, lt)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) BillableItems(c echo.Context) error {
	items := hd.h.BillableItems(c.Param("id"))
	if items == nil {
		items = []BillableItem{}
	}
	return c.JSON(http.StatusOK, items)
}

func (hd *Handler) CreateInvoice(c echo.Context) error {
	var req struct {
		Items   []ItemRef `json:"items"`
		DueDate time.Time `json:"due_date"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := hd.h.CreateInvoice(c.Param("id"), req.Items, req.DueDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) QueueCommunication(c echo.Context) error {
	var req struct {
		Method  communication.Method `json:"method"`
		Message string               `json:"message"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := hd.h.QueueCommunication(c.Param("id"), req.Method, req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) IDCard(c echo.Context) error {
	doc, err := hd.h.IDCard(c.Param("id"))
	return document(c, doc, err)
}

func (hd *Handler) DeathCertificate(c echo.Context) error {
	doc, err := hd.h.DeathCertificate(c.Param("id"))
	return document(c, doc, err)
}

func (hd *Handler) DraftReferralLetter(c echo.Context) error {
	var in ReferralInput
	if err := bind(c, &in); err != nil {
		return err
	}
	doc, err := hd.h.DraftReferralLetter(c.Request().Context(), c.Param("id"), in)
	return document(c, doc, err)
}

// -- Beds --

func (hd *Handler) ListBeds(c echo.Context) error {
	return page(c, hd.h.Beds.GetAll())
}

func (hd *Handler) AddBed(c echo.Context) error {
	var b bed.Bed
	if err := bind(c, &b); err != nil {
		return err
	}
	created, err := hd.h.Beds.Add(b)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) AvailableBeds(c echo.Context) error {
	return page(c, hd.h.AvailableBeds())
}

func (hd *Handler) RoomOccupancy(c echo.Context) error {
	return page(c, hd.h.RoomOccupancy())
}

func (hd *Handler) AssignBed(c echo.Context) error {
	var req struct {
		PatientID string `json:"patient_id"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	assigned, err := hd.h.AssignBed(req.PatientID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, assigned)
}

func (hd *Handler) ReleaseBed(c echo.Context) error {
	o, err := hd.h.ReleaseBed(c.Param("id"))
	return outcome(c, o, err)
}

func (hd *Handler) DeleteBed(c echo.Context) error {
	o, err := hd.h.DeleteBed(c.Param("id"))
	return outcome(c, o, err)
}

// -- Prescriptions --

func (hd *Handler) ListPrescriptions(c echo.Context) error {
	if pid := c.QueryParam("patient_id"); pid != "" {
		return page(c, hd.h.Prescriptions.Filter(func(rx prescription.Prescription) bool { return rx.PatientID == pid }))
	}
	return page(c, hd.h.Prescriptions.GetAll())
}

func (hd *Handler) PendingSuggestions(c echo.Context) error {
	return page(c, hd.h.PendingSuggestions())
}

func (hd *Handler) UpdatePrescriptionStatus(c echo.Context) error {
	var req struct {
		Status prescription.Status `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.UpdatePrescriptionStatus(c.Param("id"), req.Status)
	return outcome(c, o, err)
}

func (hd *Handler) ProposeSuggestion(c echo.Context) error {
	var s prescription.Suggestion
	if err := bind(c, &s); err != nil {
		return err
	}
	o, err := hd.h.ProposeSuggestion(c.Param("id"), s)
	return outcome(c, o, err)
}

func (hd *Handler) ResolveSuggestion(c echo.Context) error {
	var req struct {
		Decision prescription.Decision `json:"decision"`
		Reason   string                `json:"reason"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.ResolveSuggestion(c.Param("id"), req.Decision, req.Reason)
	return outcome(c, o, err)
}

func (hd *Handler) DispensePrescription(c echo.Context) error {
	o, err := hd.h.DispensePrescription(c.Param("id"))
	return outcome(c, o, err)
}

// -- Lab tests --

func (hd *Handler) ListLabTests(c echo.Context) error {
	if status := c.QueryParam("status"); status != "" {
		return page(c, hd.h.LabTests.ByStatus(labtest.Status(status)))
	}
	return page(c, hd.h.LabTests.GetAll())
}

func (hd *Handler) UpdateLabTestStatus(c echo.Context) error {
	var req struct {
		Status labtest.Status `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.LabTests.UpdateStatus(c.Param("id"), req.Status)
	return outcome(c, o, err)
}

func (hd *Handler) RecordLabResults(c echo.Context) error {
	var req struct {
		Results string `json:"results"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.LabTests.RecordResults(c.Param("id"), req.Results)
	return outcome(c, o, err)
}

func (hd *Handler) SetLabTestPrice(c echo.Context) error {
	var req struct {
		Price float64 `json:"price"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.LabTests.SetPrice(c.Param("id"), req.Price)
	return outcome(c, o, err)
}

// -- Invoices --

func (hd *Handler) ListInvoices(c echo.Context) error {
	if pid := c.QueryParam("patient_id"); pid != "" {
		return page(c, hd.h.Invoices.ForPatient(pid))
	}
	return page(c, hd.h.Invoices.GetAll())
}

func (hd *Handler) MarkInvoicePaid(c echo.Context) error {
	o, err := hd.h.Invoices.MarkPaid(c.Param("id"))
	return outcome(c, o, err)
}

func (hd *Handler) RefreshOverdue(c echo.Context) error {
	n := hd.h.Invoices.RefreshOverdue(hd.h.now())
	return c.JSON(http.StatusOK, map[string]int{"overdue": n})
}

// -- Medications --

func (hd *Handler) ListMedications(c echo.Context) error {
	return page(c, hd.h.Medications.GetAll())
}

func (hd *Handler) LowStockMedications(c echo.Context) error {
	return page(c, hd.h.LowStockMedications())
}

func (hd *Handler) AddMedication(c echo.Context) error {
	var m medication.Medication
	if err := bind(c, &m); err != nil {
		return err
	}
	created, err := hd.h.Medications.Add(m)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (hd *Handler) AdjustStock(c echo.Context) error {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.Medications.AdjustStock(c.Param("id"), req.Delta)
	return outcome(c, o, err)
}

// -- Communications --

func (hd *Handler) ListCommunications(c echo.Context) error {
	if c.QueryParam("status") == string(communication.StatusPending) {
		return page(c, hd.h.Communications.Pending())
	}
	return page(c, hd.h.Communications.GetAll())
}

func (hd *Handler) DispatchCommunications(c echo.Context) error {
	if hd.dispatcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no dispatcher configured")
	}
	report, err := hd.dispatcher.Dispatch(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{
		"sent":    report.Sent,
		"skipped": report.Skipped,
		"failed":  len(report.Failures),
	})
}

// -- Messages --

func (hd *Handler) ListMessages(c echo.Context) error {
	a, b := c.QueryParam("from"), c.QueryParam("to")
	if a != "" && b != "" {
		return page(c, hd.h.Messages.Between(a, b))
	}
	return page(c, hd.h.Messages.GetAll())
}

func (hd *Handler) SendMessage(c echo.Context) error {
	var m messaging.Message
	if err := bind(c, &m); err != nil {
		return err
	}
	sent, err := hd.h.SendMessage(m)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sent)
}

func (hd *Handler) MarkMessagesRead(c echo.Context) error {
	var req struct {
		Viewer      string `json:"viewer"`
		Counterpart string `json:"counterpart"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	n := hd.h.Messages.MarkAsRead(req.Viewer, req.Counterpart)
	return c.JSON(http.StatusOK, map[string]int{"marked": n})
}

func (hd *Handler) Conversations(c echo.Context) error {
	viewer := c.QueryParam("viewer")
	if viewer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "viewer is required")
	}
	return c.JSON(http.StatusOK, hd.h.Conversations(viewer))
}

// -- Autopsies --

func (hd *Handler) ListAutopsies(c echo.Context) error {
	return page(c, hd.h.Autopsies.GetAll())
}

func (hd *Handler) UpdateAutopsyNotes(c echo.Context) error {
	var req struct {
		Pathologist string `json:"pathologist"`
		Notes       string `json:"notes"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := hd.h.Autopsies.UpdateNotes(c.Param("id"), req.Pathologist, req.Notes)
	return outcome(c, o, err)
}

func (hd *Handler) DraftAutopsyReport(c echo.Context) error {
	var req struct {
		Instructions string `json:"instructions"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := hd.h.DraftAutopsyReport(c.Request().Context(), c.Param("id"), req.Instructions)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (hd *Handler) CompleteAutopsy(c echo.Context) error {
	o, err := hd.h.Autopsies.Complete(c.Param("id"))
	return outcome(c, o, err)
}

func (hd *Handler) AutopsyReport(c echo.Context) error {
	doc, err := hd.h.AutopsyReport(c.Param("id"))
	return document(c, doc, err)
}

func (hd *Handler) Reset(c echo.Context) error {
	hd.h.Reset()
	return c.NoContent(http.StatusNoContent)
}
