package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/handler"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/service"
)

func do(r http.Handler, method, path, session string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(handler.SessionHeader, session)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	Expect(json.Unmarshal(w.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Handlers", func() {
	var (
		svc      *mockService
		sessions *mockSessions
		settings *mockSettings
		r        *gin.Engine
		student  *model.Session
		mentor   *model.Session
		logs     *logtest.Hook
	)

	BeforeEach(func() {
		svc = &mockService{presence: map[string]bool{"muzeira": false, "kayo": true}}
		sessions = newMockSessions()
		settings = &mockSettings{online: true, registered: map[string]string{}}
		student = sessions.issue("", true)
		mentor = sessions.issue("muzeira@mentor.com", false)

		var logger *logrus.Logger
		logger, logs = logtest.NewNullLogger()

		r = gin.New()
		r.Use(handler.WithSession(sessions))
		sh := handler.NewSessionHandler(sessions, svc, logger)
		r.GET("/session", sh.Current)
		r.POST("/session/anonymous", sh.Anonymous)
		r.POST("/session/login", sh.Login)
		r.POST("/session/logout", sh.Logout)
		th := handler.NewTicketHandler(svc)
		r.GET("/tickets", th.List)
		r.POST("/tickets", th.Create)
		r.DELETE("/tickets/history", th.ClearHistory)
		r.PATCH("/tickets/:id/availability", th.EditAvailability)
		r.POST("/tickets/:id/discard", th.Discard)
		r.POST("/tickets/:id/status", th.ChangeStatus)
		ph := handler.NewPresenceHandler(svc)
		r.GET("/presence", ph.Get)
		r.PUT("/presence/me", ph.SetMine)
		r.GET("/mentors", ph.Mentors)
		st := handler.NewSettingsHandler(settings)
		r.GET("/system", st.System)
		r.PUT("/settings/telegram/:chatID", st.RegisterTelegram)
		r.POST("/settings/telegram/test", st.TestTelegram)
		r.GET("/settings/telegram/discover", st.DiscoverChat)
		r.PUT("/settings/email", st.SaveEmail)
		r.POST("/settings/email/test", st.TestEmail)
	})

	Describe("sessions", func() {
		It("opens an anonymous session", func() {
			w := do(r, http.MethodPost, "/session/anonymous", "", nil)
			Expect(w.Code).To(Equal(http.StatusCreated))
			body := decode(w)
			Expect(body["session"]).To(HaveKeyWithValue("isAnonymous", true))
			Expect(body["mentor"]).To(BeNil())
		})

		It("reuses a known session", func() {
			w := do(r, http.MethodPost, "/session/anonymous", student.ID, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["session"]).To(HaveKeyWithValue("id", student.ID))
		})

		It("logs in a mentor and drops the anonymous session", func() {
			w := do(r, http.MethodPost, "/session/login", student.ID, map[string]string{"identifier": "muzeira", "secret": "123456"})
			Expect(w.Code).To(Equal(http.StatusOK))
			body := decode(w)
			Expect(body["session"]).To(HaveKeyWithValue("email", "muzeira@mentor.com"))
			Expect(body["mentor"]).To(HaveKeyWithValue("id", "muzeira"))
			Expect(sessions.loggedOut).To(Equal([]string{student.ID}))
		})

		It("still logs in when the anonymous session cannot be dropped", func() {
			sessions.logoutErr = errors.New("sessions table locked")
			w := do(r, http.MethodPost, "/session/login", student.ID, map[string]string{"identifier": "kayo", "secret": "123456"})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["session"]).To(HaveKeyWithValue("email", "kayo@mentor.com"))

			entry := logs.LastEntry()
			Expect(entry).NotTo(BeNil())
			Expect(entry.Level).To(Equal(logrus.WarnLevel))
			Expect(entry.Data).To(HaveKeyWithValue("session_id", student.ID))
			Expect(entry.Data[logrus.ErrorKey]).To(MatchError("sessions table locked"))
		})

		DescribeTable("maps login failures",
			func(err error, code int) {
				sessions.loginErr = err
				w := do(r, http.MethodPost, "/session/login", "", map[string]string{"identifier": "x", "secret": "y"})
				Expect(w.Code).To(Equal(code))
				Expect(decode(w)["error"]).To(Equal(err.Error()))
			},
			Entry("wrong password", errs.ErrWrongCredentials, http.StatusUnauthorized),
			Entry("weak secret", errs.ErrWeakSecret, http.StatusUnauthorized),
			Entry("throttled", errs.ErrTooManyAttempts, http.StatusTooManyRequests),
		)

		It("rejects a login without credentials", func() {
			w := do(r, http.MethodPost, "/session/login", "", map[string]string{"identifier": "x"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("replaces the session on logout", func() {
			w := do(r, http.MethodPost, "/session/logout", mentor.ID, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			body := decode(w)
			Expect(body["session"]).To(HaveKeyWithValue("isAnonymous", true))
			Expect(sessions.loggedOut).To(ContainElement(mentor.ID))
		})

		It("reports a missing session", func() {
			Expect(do(r, http.MethodGet, "/session", "", nil).Code).To(Equal(http.StatusUnauthorized))
			Expect(do(r, http.MethodGet, "/session", "unknown", nil).Code).To(Equal(http.StatusUnauthorized))
			Expect(do(r, http.MethodGet, "/session", mentor.ID, nil).Code).To(Equal(http.StatusOK))
		})
	})

	Describe("tickets", func() {
		It("creates a ticket with the caller session in context", func() {
			svc.createFn = func(ctx context.Context, in service.CreateTicketInput) (*model.Ticket, error) {
				Expect(auth.SessionFromContext(ctx)).To(Equal(student))
				Expect(in.Category).To(Equal("Outros"))
				return &model.Ticket{ID: "t1", StudentName: in.StudentName, Status: model.TicketStatusPending}, nil
			}
			w := do(r, http.MethodPost, "/tickets", student.ID, map[string]string{
				"studentName": "Ana", "category": "Outros", "details": "ajuda", "availability": "18h",
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(decode(w)).To(HaveKeyWithValue("id", "t1"))
		})

		It("rejects incomplete requests", func() {
			w := do(r, http.MethodPost, "/tickets", student.ID, map[string]string{"studentName": "Ana"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)).To(HaveKeyWithValue("kind", "validation"))
		})

		It("surfaces permission denials with the access message", func() {
			svc.createFn = func(context.Context, service.CreateTicketInput) (*model.Ticket, error) {
				return nil, errs.ErrPermissionDenied
			}
			w := do(r, http.MethodPost, "/tickets", "", map[string]string{
				"studentName": "Ana", "details": "ajuda", "availability": "18h",
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decode(w)).To(HaveKeyWithValue("error", "access denied: check backend rules"))
		})

		It("lists tickets split into views", func() {
			svc.ticketsFn = func(context.Context) ([]model.Ticket, error) {
				return []model.Ticket{
					{ID: "a", Status: model.TicketStatusPending},
					{ID: "b", Status: model.TicketStatusResolved, ResolvedBy: "Muzeira"},
				}, nil
			}
			w := do(r, http.MethodGet, "/tickets", mentor.ID, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			body := decode(w)
			Expect(body["tickets"]).To(HaveLen(2))
			Expect(body["pending"]).To(HaveLen(1))
			Expect(body["history"]).To(HaveLen(1))
			Expect(body["resolvedByMe"]).To(BeNumerically("==", 1))
		})

		It("maps read failures to connection errors", func() {
			svc.ticketsFn = func(context.Context) ([]model.Ticket, error) { return nil, errors.New("dial tcp: refused") }
			w := do(r, http.MethodGet, "/tickets", "", nil)
			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Expect(decode(w)["error"]).To(ContainSubstring("connection error"))
		})

		DescribeTable("maps mutation errors",
			func(err error, code int) {
				svc.editFn = func(context.Context, string, string) error { return err }
				w := do(r, http.MethodPatch, "/tickets/t1/availability", student.ID, map[string]string{"availability": "amanhã"})
				Expect(w.Code).To(Equal(code))
			},
			Entry("ok", nil, http.StatusNoContent),
			Entry("not found", errs.ErrTicketNotFound, http.StatusNotFound),
			Entry("not owner", errs.ErrPermissionDenied, http.StatusForbidden),
			Entry("not pending", errs.ErrIllegalTransition, http.StatusConflict),
		)

		It("passes status transitions to the service", func() {
			var got model.TicketStatus
			svc.changeStatusFn = func(_ context.Context, id string, status model.TicketStatus) error {
				Expect(id).To(Equal("t1"))
				got = status
				return nil
			}
			w := do(r, http.MethodPost, "/tickets/t1/status", mentor.ID, map[string]string{"status": "RESOLVED"})
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(got).To(Equal(model.TicketStatusResolved))
		})

		It("discards and clears", func() {
			svc.discardFn = func(context.Context, string) error { return nil }
			svc.clearFn = func(context.Context) (int, error) { return 4, nil }
			Expect(do(r, http.MethodPost, "/tickets/t1/discard", student.ID, nil).Code).To(Equal(http.StatusNoContent))
			w := do(r, http.MethodDelete, "/tickets/history", mentor.ID, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["deleted"]).To(BeNumerically("==", 4))
		})
	})

	Describe("presence", func() {
		It("returns flags and mentor cards", func() {
			w := do(r, http.MethodGet, "/presence", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)).To(HaveKeyWithValue("anyOnline", true))

			w = do(r, http.MethodGet, "/mentors", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["mentors"]).To(HaveLen(2))
		})

		It("sets or toggles own presence", func() {
			var set *bool
			svc.setPresenceFn = func(_ context.Context, online bool) error { set = &online; return nil }
			svc.togglePresenceFn = func(context.Context) (bool, error) { return true, nil }

			w := do(r, http.MethodPut, "/presence/me", mentor.ID, map[string]bool{"online": false})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(set).NotTo(BeNil())
			Expect(*set).To(BeFalse())

			w = do(r, http.MethodPut, "/presence/me", mentor.ID, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)).To(HaveKeyWithValue("online", true))
		})
	})

	Describe("settings", func() {
		It("reports the backend mode", func() {
			Expect(decode(do(r, http.MethodGet, "/system", "", nil))).To(HaveKeyWithValue("online", true))
		})

		It("registers telegram chats", func() {
			w := do(r, http.MethodPut, "/settings/telegram/-100123", mentor.ID, map[string]string{"name": "Grupo"})
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(settings.registered).To(HaveKeyWithValue("-100123", "Grupo"))

			Expect(do(r, http.MethodPut, "/settings/telegram/bad", mentor.ID, nil).Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 in fallback mode", func() {
			settings.online = false
			Expect(do(r, http.MethodPut, "/settings/telegram/1", mentor.ID, nil).Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("saves the email config", func() {
			w := do(r, http.MethodPut, "/settings/email", mentor.ID, map[string]string{"serviceId": "s", "templateId": "t", "publicKey": "p"})
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(settings.saved.TemplateID).To(Equal("t"))
			Expect(do(r, http.MethodPut, "/settings/email", mentor.ID, map[string]string{"serviceId": "s"}).Code).To(Equal(http.StatusBadRequest))
		})

		It("sends test messages and discovers chats", func() {
			settings.chatID = "42"
			Expect(do(r, http.MethodPost, "/settings/telegram/test", "", map[string]string{"chatId": "42"}).Code).To(Equal(http.StatusOK))
			Expect(decode(do(r, http.MethodGet, "/settings/telegram/discover", "", nil))).To(HaveKeyWithValue("chatId", "42"))

			settings.testErr = errs.ErrNotConfigured
			w := do(r, http.MethodPost, "/settings/email/test", "", map[string]string{"serviceId": "s", "templateId": "t", "publicKey": "p"})
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
