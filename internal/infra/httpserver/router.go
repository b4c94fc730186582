package httpserver

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/diagnoflow/internal/application/audit"
	appdash "github.com/bryanwahyu/diagnoflow/internal/application/dashboard"
	appdiag "github.com/bryanwahyu/diagnoflow/internal/application/diagnosis"
	appreports "github.com/bryanwahyu/diagnoflow/internal/application/reports"
	appsurv "github.com/bryanwahyu/diagnoflow/internal/application/surveillance"
	"github.com/bryanwahyu/diagnoflow/internal/domain/activity"
	domdiag "github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
	domain "github.com/bryanwahyu/diagnoflow/internal/domain/reports"
	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
	"github.com/bryanwahyu/diagnoflow/internal/middleware"
)

const maxUploadBytes = 32 << 20 // per detect request

type Router struct {
	reportsSvc   *appreports.Service
	diagnosisSvc *appdiag.Service
	survSvc      *appsurv.Service
	dashSvc      *appdash.Service
	auditRec     *audit.Recorder
}

func NewRouter(reportsSvc *appreports.Service, diagnosisSvc *appdiag.Service, survSvc *appsurv.Service, dashSvc *appdash.Service, auditRec *audit.Recorder) http.Handler {
	r := &Router{
		reportsSvc:   reportsSvc,
		diagnosisSvc: diagnosisSvc,
		survSvc:      survSvc,
		dashSvc:      dashSvc,
		auditRec:     auditRec,
	}
	mux := chi.NewRouter()

	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses", r.wrap(r.handleCreateAnalysis))
		rt.Post("/analyses/detect", r.wrap(r.handleDetect))
		rt.Get("/analyses", r.wrap(r.handleListAnalyses))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDeleteAnalysis))

		rt.Post("/reports", r.wrap(r.handleSubmitReport))
		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
		rt.Post("/reports/{id}/mo-review", r.wrap(r.handleMOReview))
		rt.Post("/reports/{id}/pathologist-review", r.wrap(r.handlePathologistReview))

		rt.Get("/surveillance", r.wrap(r.handleSurveillance))
		rt.Get("/surveillance/export", r.wrap(r.handleSurveillanceExport))
		rt.Get("/dashboard", r.wrap(r.handleDashboard))
		rt.Get("/activity", r.wrap(r.handleActivity))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var errForbidden = errors.New("forbidden")

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows), errors.Is(err, domain.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, domain.ErrValidation):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrInvalidTransition):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domain.ErrNoPathologistAvailable):
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			case errors.Is(err, errForbidden):
				http.Error(w, err.Error(), http.StatusForbidden)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func actor(req *http.Request) (staff.Actor, error) {
	a, ok := middleware.GetActorFromContext(req.Context())
	if !ok {
		return staff.Actor{}, errors.New("no actor in request context")
	}
	return a, nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/analyses
// Body: {"disease": "...", "facility": "...", "verdict": "...", "confidence": 92.5, "image_url": "..."}
func (r *Router) handleCreateAnalysis(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}

	var body struct {
		Disease    string  `json:"disease"`
		Facility   string  `json:"facility"`
		Verdict    string  `json:"verdict"`
		Confidence float64 `json:"confidence"`
		ImageURL   string  `json:"image_url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}

	a, err := r.diagnosisSvc.Create(req.Context(), act, appdiag.CreateCommand{
		Disease:    domdiag.Disease(body.Disease),
		Facility:   middleware.SanitizeString(body.Facility),
		Verdict:    middleware.SanitizeString(body.Verdict),
		Confidence: body.Confidence,
		ImageURL:   body.ImageURL,
	})
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, a)
}

// POST /v1/analyses/detect
// Multipart form: "images" file parts plus "disease" and "facility" fields.
// The classifier runs synchronously; the persisted record comes back.
func (r *Router) handleDetect(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return err
	}

	disease := req.FormValue("disease")
	if err := middleware.ValidateDisease(disease); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	facility := middleware.SanitizeString(req.FormValue("facility"))

	var images [][]byte
	if req.MultipartForm != nil {
		for _, fh := range req.MultipartForm.File["images"] {
			f, ferr := fh.Open()
			if ferr != nil {
				return ferr
			}
			data, rerr := io.ReadAll(f)
			f.Close()
			if rerr != nil {
				return rerr
			}
			images = append(images, data)
		}
	}

	a, err := r.diagnosisSvc.Detect(req.Context(), act, domdiag.Disease(disease), facility, images)
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, a)
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	// privileged roles may inspect another account's records
	accountID := act.ID
	if v := req.URL.Query().Get("account_id"); v != "" &&
		(act.Role == staff.RoleAdmin || act.Role == staff.RoleHealthOfficer) {
		accountID = v
	}

	list, err := r.diagnosisSvc.ListByAccount(req.Context(), accountID, page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDeleteAnalysis(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}

	if err := r.diagnosisSvc.Delete(req.Context(), act, domdiag.AnalysisID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/reports
// Body: {"analysis_id": "<id>"}
func (r *Router) handleSubmitReport(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}

	var body struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if body.AnalysisID == "" {
		return errors.Join(domain.ErrValidation, errors.New("analysis_id is required"))
	}

	rep, err := r.reportsSvc.Submit(req.Context(), act, domdiag.AnalysisID(body.AnalysisID))
	if err != nil {
		return err
	}
	middleware.IncrementReportsSubmitted()

	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, rep)
}

// GET /v1/reports?status=&page=&page_size=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	if _, err := actor(req); err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	status := domain.Status(req.URL.Query().Get("status"))

	list, err := r.reportsSvc.List(req.Context(), status, page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	if _, err := actor(req); err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID(id); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}

	view, err := r.reportsSvc.GetView(req.Context(), domain.ReportID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// POST /v1/reports/{id}/mo-review
// Body: {"decision": "approve"|"reject", "notes": "..."}
func (r *Router) handleMOReview(w http.ResponseWriter, req *http.Request) error {
	return r.handleReview(w, req, r.reportsSvc.ReviewAsMedicalOfficer)
}

// POST /v1/reports/{id}/pathologist-review
func (r *Router) handlePathologistReview(w http.ResponseWriter, req *http.Request) error {
	return r.handleReview(w, req, r.reportsSvc.ReviewAsPathologist)
}

type reviewFunc func(ctx context.Context, actor staff.Actor, id domain.ReportID, decision domain.Decision, notes string) (*domain.Report, error)

func (r *Router) handleReview(w http.ResponseWriter, req *http.Request, review reviewFunc) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")

	var body struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateDecision(body.Decision); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}

	rep, err := review(req.Context(), act, domain.ReportID(id), domain.Decision(body.Decision), middleware.SanitizeString(body.Notes))
	if err != nil {
		return err
	}
	middleware.IncrementReviewsRecorded()
	return writeJSON(w, rep)
}

// GET /v1/surveillance?range=7d|30d|90d or ?start=&end= (RFC 3339)
func (r *Router) handleSurveillance(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	if act.Role != staff.RoleHealthOfficer && act.Role != staff.RoleAdmin {
		return errors.Join(errForbidden, errors.New("surveillance is restricted to health officers"))
	}

	q := req.URL.Query()
	win := r.survSvc.WindowFromRange(q.Get("range"))
	if q.Get("start") != "" && q.Get("end") != "" {
		start, serr := time.Parse(time.RFC3339, q.Get("start"))
		if serr != nil {
			return errors.Join(domain.ErrValidation, serr)
		}
		end, eerr := time.Parse(time.RFC3339, q.Get("end"))
		if eerr != nil {
			return errors.Join(domain.ErrValidation, eerr)
		}
		if !end.After(start) {
			return errors.Join(domain.ErrValidation, errors.New("end must be after start"))
		}
		win = appsurv.Window{From: start, To: end}
	}

	snap, err := r.survSvc.Snapshot(req.Context(), win)
	if err != nil {
		return err
	}
	return writeJSON(w, snap)
}

// GET /v1/surveillance/export?range=...
// Streams the window's approved cases as CSV.
func (r *Router) handleSurveillanceExport(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}
	if act.Role != staff.RoleHealthOfficer && act.Role != staff.RoleAdmin {
		return errors.Join(errForbidden, errors.New("surveillance is restricted to health officers"))
	}

	win := r.survSvc.WindowFromRange(req.URL.Query().Get("range"))
	snap, err := r.survSvc.Snapshot(req.Context(), win)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="surveillance.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"report_id", "disease", "facility", "verdict", "confidence",
		"submitted_by", "submitted_at", "verified_by", "verified_at", "approval_hours"})
	for _, c := range snap.RecentApproved {
		verifiedAt := ""
		if c.VerifiedAt != nil {
			verifiedAt = c.VerifiedAt.Format(time.RFC3339)
		}
		_ = cw.Write([]string{
			c.ReportID, c.Disease, c.Facility, c.Verdict,
			strconv.FormatFloat(c.Confidence, 'f', 2, 64),
			c.SubmittedBy, c.SubmittedAt.Format(time.RFC3339),
			c.VerifiedBy, verifiedAt,
			strconv.FormatFloat(c.ApprovalHours, 'f', 2, 64),
		})
	}
	cw.Flush()

	_, _ = r.auditRec.Record(req.Context(), act, activity.ActionDataExported,
		fmt.Sprintf("exported %d approved cases", len(snap.RecentApproved)), "")
	return cw.Error()
}

// GET /v1/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}

	view, err := r.dashSvc.For(req.Context(), act)
	if err != nil {
		return err
	}

	// best effort: a view is worth a trail entry but not a failed response
	_, _ = r.auditRec.Record(req.Context(), act, activity.ActionDashboardViewed, "opened dashboard", "")

	return writeJSON(w, view)
}

// GET /v1/activity?actor_id=&role=&from=&to=&limit=
// Non-privileged roles only see their own trail.
func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) error {
	act, err := actor(req)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := activity.Filter{
		ActorID: q.Get("actor_id"),
		Role:    q.Get("role"),
		Limit:   limit,
	}
	if v := q.Get("from"); v != "" {
		t, terr := time.Parse(time.RFC3339, v)
		if terr != nil {
			return errors.Join(domain.ErrValidation, terr)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, terr := time.Parse(time.RFC3339, v)
		if terr != nil {
			return errors.Join(domain.ErrValidation, terr)
		}
		f.To = t
	}

	if act.Role != staff.RoleAdmin && act.Role != staff.RoleHealthOfficer {
		f.ActorID = act.ID
	}

	events, err := r.auditRec.Query(req.Context(), f)
	if err != nil {
		return err
	}
	return writeJSON(w, events)
}
