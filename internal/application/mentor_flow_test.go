package application

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/config"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/handler"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/service"
)

var _ = Describe("Mentor sessions", func() {
	var (
		ctx context.Context
		s   *Stack
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = Build(ctx, testConfig(config.BackendMemory), logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)
	})

	// login входит через провайдера и возвращает контекст с сессией из хранилища.
	login := func(identifier string) context.Context {
		issued, err := s.Auth.Login(ctx, identifier, "secret1")
		Expect(err).NotTo(HaveOccurred())
		Expect(issued.IsAnonymous).To(BeFalse())
		stored, err := s.Auth.Lookup(ctx, issued.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsAnonymous).To(BeFalse())
		return auth.WithSession(ctx, stored)
	}

	studentTicket := func() string {
		sess, err := s.Auth.Anonymous(ctx)
		Expect(err).NotTo(HaveOccurred())
		t, err := s.Service.CreateTicket(auth.WithSession(ctx, sess), service.CreateTicketInput{
			StudentName: "Ana", Category: service.Categories[0], Details: "dúvida", Availability: "hoje 18h",
		})
		Expect(err).NotTo(HaveOccurred())
		return t.ID
	}

	It("resolves with attribution, sets presence and clears history", func() {
		id := studentTicket()
		mctx := login("muzeira")

		Expect(s.Service.MentorProfile(s.Facade.Caller(mctx))).NotTo(BeNil())
		Expect(s.Service.ChangeStatus(mctx, id, model.TicketStatusResolved)).To(Succeed())
		t, err := s.Facade.Ticket(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Status).To(Equal(model.TicketStatusResolved))
		Expect(t.ResolvedBy).To(Equal("Muzeira"))

		Expect(s.Service.SetMyPresence(mctx, true)).To(Succeed())
		presence, err := s.Service.Presence(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(presence).To(Equal(map[string]bool{"muzeira": true, "kayo": false}))

		n, err := s.Service.ClearHistory(mctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("lets the second mentor act but not clear history", func() {
		id := studentTicket()
		kctx := login("tocha")

		Expect(s.Service.ChangeStatus(kctx, id, model.TicketStatusInProgress)).To(Succeed())
		Expect(s.Service.ChangeStatus(kctx, id, model.TicketStatusResolved)).To(Succeed())
		t, err := s.Facade.Ticket(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.ResolvedBy).To(Equal("Tocha 🔥"))

		_, err = s.Service.ClearHistory(kctx)
		Expect(err).To(MatchError(errs.ErrPermissionDenied))
	})
})

var _ = Describe("Mentor sessions over HTTP", func() {
	var h http.Handler

	BeforeEach(func() {
		a, err := NewAPI(context.Background(), testConfig(config.BackendMemory), logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.stack.Close)
		h = a.httpSrv.Handler
	})

	call := func(method, path, session string, body interface{}) (int, map[string]interface{}) {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if session != "" {
			req.Header.Set(handler.SessionHeader, session)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var out map[string]interface{}
		if rec.Body.Len() > 0 {
			Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		}
		return rec.Code, out
	}

	sessionID := func(body map[string]interface{}) string {
		sess, ok := body["session"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		id, _ := sess["id"].(string)
		Expect(id).NotTo(BeEmpty())
		return id
	}

	It("resolves a student ticket with a logged-in mentor", func() {
		code, body := call(http.MethodPost, "/api/v1/session/anonymous", "", nil)
		Expect(code).To(Equal(http.StatusCreated))
		student := sessionID(body)

		code, body = call(http.MethodPost, "/api/v1/tickets", student, map[string]string{
			"studentName": "Ana", "category": service.Categories[0], "details": "dúvida", "availability": "agora",
		})
		Expect(code).To(Equal(http.StatusCreated))
		ticketID, _ := body["id"].(string)
		Expect(ticketID).NotTo(BeEmpty())

		code, body = call(http.MethodPost, "/api/v1/session/login", student, map[string]string{
			"identifier": "muzeira", "secret": "secret1",
		})
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["session"]).To(HaveKeyWithValue("isAnonymous", false))
		Expect(body["mentor"]).To(HaveKeyWithValue("id", "muzeira"))
		mentorSession := sessionID(body)

		code, _ = call(http.MethodPost, "/api/v1/tickets/"+ticketID+"/status", mentorSession, map[string]string{
			"status": string(model.TicketStatusResolved),
		})
		Expect(code).To(Equal(http.StatusNoContent))

		code, body = call(http.MethodGet, "/api/v1/tickets", mentorSession, nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["resolvedByMe"]).To(BeEquivalentTo(1))
		tickets, _ := body["tickets"].([]interface{})
		Expect(tickets).To(HaveLen(1))
		Expect(tickets[0]).To(HaveKeyWithValue("resolvedBy", "Muzeira"))
	})

	It("rejects the same transition from the student session", func() {
		_, body := call(http.MethodPost, "/api/v1/session/anonymous", "", nil)
		student := sessionID(body)
		_, body = call(http.MethodPost, "/api/v1/tickets", student, map[string]string{
			"studentName": "Ana", "details": "dúvida", "availability": "agora",
		})
		ticketID, _ := body["id"].(string)

		code, _ := call(http.MethodPost, "/api/v1/tickets/"+ticketID+"/status", student, map[string]string{
			"status": string(model.TicketStatusResolved),
		})
		Expect(code).To(Equal(http.StatusForbidden))
	})
})
