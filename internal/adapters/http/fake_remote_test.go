package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/adapters/http/perf"
	"groomdesk/internal/adapters/notify"
	"groomdesk/internal/adapters/storage"
	"groomdesk/internal/adapters/storage/localstate"
	"groomdesk/internal/application/calendarsession"
	"groomdesk/internal/domain/account"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/sale"
	"groomdesk/internal/domain/staff"
)

// fakeRemote is an in-process stand-in for the booking API.
type fakeRemote struct {
	mu           sync.Mutex
	appointments map[string]appointment.Appointment
	staff        []staff.Staff
	customers    []customer.Customer
	sales        []sale.Sale
	calls        []string

	// failStatus, when set, answers every authenticated route with that status.
	failStatus int
	// listStarted and listRelease, when set, pause appointment list calls.
	listStarted chan struct{}
	listRelease chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		appointments: map[string]appointment.Appointment{},
		staff: []staff.Staff{
			{ID: "s1", Name: "Jisoo", Role: "groomer"},
			{ID: "s2", Name: "Minho", Role: "groomer"},
		},
	}
}

func (f *fakeRemote) addAppointment(a appointment.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments[a.ID] = a
}

func (f *fakeRemote) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func remoteJSON(w http.ResponseWriter, status int, v map[string]any) {
	if v == nil {
		v = map[string]any{}
	}
	v["success"] = status < 300
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+path)
	fail := f.failStatus
	f.mu.Unlock()

	switch path {
	case "/auth/login":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret-pass" {
			remoteJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid credentials"})
			return
		}
		remoteJSON(w, http.StatusOK, map[string]any{
			"token": "tok-owner",
			"user":  map[string]any{"id": "u1", "email": body["email"], "name": "Jisoo", "shopName": "Bori Grooming", "role": account.RoleOwner},
		})
		return
	case "/auth/register":
		remoteJSON(w, http.StatusCreated, nil)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		remoteJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing token"})
		return
	}
	if fail != 0 {
		remoteJSON(w, fail, map[string]any{"message": "upstream unavailable"})
		return
	}

	switch {
	case path == "/staff":
		remoteJSON(w, http.StatusOK, map[string]any{"staff": f.staff})
	case path == "/appointments" && r.Method == http.MethodGet:
		if f.listStarted != nil {
			f.listStarted <- struct{}{}
			<-f.listRelease
		}
		remoteJSON(w, http.StatusOK, map[string]any{"appointments": f.listAppointments(r.URL.Query().Get("date"), r.URL.Query().Get("month"))})
	case path == "/appointments" && r.Method == http.MethodPost:
		var a appointment.Appointment
		json.NewDecoder(r.Body).Decode(&a)
		a.ID = "a-new"
		f.addAppointment(a)
		remoteJSON(w, http.StatusCreated, map[string]any{"appointment": a})
	case strings.HasPrefix(path, "/appointments/"):
		f.serveAppointment(w, r, strings.TrimPrefix(path, "/appointments/"))
	case path == "/customers":
		f.mu.Lock()
		list := customer.Filter(f.customers, r.URL.Query().Get("search"))
		f.mu.Unlock()
		if list == nil {
			list = []customer.Customer{}
		}
		remoteJSON(w, http.StatusOK, map[string]any{
			"customers":  list,
			"pagination": api.Pagination{Page: 1, Limit: 20, Total: len(list), TotalPages: 1},
		})
	case strings.HasPrefix(path, "/customers/phone/"):
		phone := strings.TrimPrefix(path, "/customers/phone/")
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, c := range f.customers {
			if customer.NormalizePhone(c.Phone) == phone {
				remoteJSON(w, http.StatusOK, map[string]any{"customer": c})
				return
			}
		}
		remoteJSON(w, http.StatusNotFound, map[string]any{"message": "no such customer"})
	case path == "/sales" && r.Method == http.MethodPost:
		var s sale.Sale
		json.NewDecoder(r.Body).Decode(&s)
		s.ID = "sale-1"
		f.mu.Lock()
		f.sales = append(f.sales, s)
		f.mu.Unlock()
		remoteJSON(w, http.StatusCreated, map[string]any{"sale": s})
	case path == "/sales":
		f.mu.Lock()
		list := append([]sale.Sale{}, f.sales...)
		f.mu.Unlock()
		remoteJSON(w, http.StatusOK, map[string]any{"sales": list})
	default:
		remoteJSON(w, http.StatusNotFound, map[string]any{"message": "unknown route"})
	}
}

func (f *fakeRemote) listAppointments(date, month string) []appointment.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []appointment.Appointment{}
	for _, a := range f.appointments {
		if (date != "" && a.Date == date) || (month != "" && strings.HasPrefix(a.Date, month)) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRemote) serveAppointment(w http.ResponseWriter, r *http.Request, rest string) {
	id, suffix, _ := strings.Cut(rest, "/")
	f.mu.Lock()
	a, ok := f.appointments[id]
	f.mu.Unlock()
	if !ok {
		remoteJSON(w, http.StatusNotFound, map[string]any{"message": "appointment not found"})
		return
	}
	switch {
	case suffix == "status" && r.Method == http.MethodPatch:
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		a.Status = body["status"]
		f.addAppointment(a)
		remoteJSON(w, http.StatusOK, nil)
	case r.Method == http.MethodGet:
		remoteJSON(w, http.StatusOK, map[string]any{"appointment": a})
	case r.Method == http.MethodPut:
		var updated appointment.Appointment
		json.NewDecoder(r.Body).Decode(&updated)
		updated.ID = id
		f.addAppointment(updated)
		remoteJSON(w, http.StatusOK, map[string]any{"appointment": updated})
	case r.Method == http.MethodDelete:
		f.mu.Lock()
		delete(f.appointments, id)
		f.mu.Unlock()
		remoteJSON(w, http.StatusOK, nil)
	default:
		remoteJSON(w, http.StatusMethodNotAllowed, nil)
	}
}

// fixedNow is the clock every handler test runs against.
var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

var ownerSession = middleware.Session{
	Token:     "sess-owner",
	UserID:    "u1",
	Email:     "owner@bori.test",
	Name:      "Jisoo",
	ShopName:  "Bori Grooming",
	Role:      account.RoleOwner,
	APIToken:  "tok-owner",
	CreatedAt: fixedNow,
}

var staffSession = middleware.Session{
	Token:     "sess-staff",
	UserID:    "u2",
	Email:     "staff@bori.test",
	Name:      "Minho",
	ShopName:  "Bori Grooming",
	Role:      account.RoleStaff,
	APIToken:  "tok-staff",
	CreatedAt: fixedNow,
}

// setupTest points the package globals at a fresh fake remote and an in-memory local store.
func setupTest(t *testing.T) *fakeRemote {
	t.Helper()
	remote := newFakeRemote()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	prevNow := timeNow
	timeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { timeNow = prevNow })

	deps = &Deps{
		API:            api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}),
		Local:          localstate.NewSQLiteStore(storage.NewTimedDB(db, nil, 0)),
		Sender:         notify.NewNoopSender(),
		SearchMinChars: 1,
	}
	sessions = middleware.NewSessionStore()
	calendars = calendarsession.NewManager()
	sessions.OnExpire(calendars.Remove)
	perfCollector = perf.NewCollector(100)
	return remote
}

func authRequest(method, url string, body string, sess middleware.Session) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	ctx := middleware.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func sampleAppointment() appointment.Appointment {
	return appointment.Appointment{
		ID:        "a1",
		Date:      "2024-03-01",
		StartTime: "10:00",
		EndTime:   "11:00",
		Guardian:  appointment.Guardian{Name: "Kim Minji", Phone: "010-1234-5678", AlimtalkConsent: true},
		Pets:      []appointment.Pet{{Name: "Bori", Breed: "Maltese", Weight: 3.2}},
		Service:   "Full groom",
		StaffID:   "s1",
		StaffName: "Jisoo",
		Status:    appointment.StatusReserved,
	}
}
