package notify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/notify"
)

var _ = Describe("Telegram", func() {
	var (
		server *httptest.Server
		mu     sync.Mutex
		sent   map[string]string
		client *notify.TelegramClient
	)

	BeforeEach(func() {
		sent = map[string]string{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/botTOKEN/sendMessage":
				q := r.URL.Query()
				if q.Get("chat_id") == "404" || q.Get("parse_mode") != "Markdown" {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
					return
				}
				mu.Lock()
				sent[q.Get("chat_id")] = q.Get("text")
				mu.Unlock()
				_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
			case "/botTOKEN/getUpdates":
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":1,"message":{"chat":{"id":111}}},
					{"update_id":2,"message":{"chat":{"id":-100222,"title":"mentors"}}},
					{"update_id":3}
				]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"ok":false,"description":"Not Found"}`))
			}
		}))
		DeferCleanup(server.Close)
		client = notify.NewTelegramClient("TOKEN").WithBaseURL(server.URL)
	})

	It("sends the new ticket to every destination and tolerates failures", func() {
		dests := &mockConfigStore{dests: []model.TelegramDestination{{ChatID: "404"}, {ChatID: "-100"}, {ChatID: "7"}}}
		tg := notify.NewTelegram(client, dests, logging.Discard())

		err := tg.Notify(context.Background(), model.Ticket{ID: "t1", StudentName: "Ana_B", Reason: "VSL", Availability: "18h"})
		Expect(err).NotTo(HaveOccurred())

		mu.Lock()
		defer mu.Unlock()
		Expect(sent).To(HaveLen(2))
		Expect(sent["-100"]).To(ContainSubstring("Ana\\_B"))
		Expect(sent["7"]).To(ContainSubstring("18h"))
	})

	It("reports a failed destination lookup", func() {
		tg := notify.NewTelegram(client, &mockConfigStore{listErr: errors.New("db down")}, logging.Discard())
		Expect(tg.Notify(context.Background(), model.Ticket{ID: "t1"})).To(MatchError(ContainSubstring("db down")))
	})

	It("skips silently without a token", func() {
		tg := notify.NewTelegram(notify.NewTelegramClient(""), &mockConfigStore{dests: []model.TelegramDestination{{ChatID: "1"}}}, logging.Discard())
		Expect(tg.Notify(context.Background(), model.Ticket{ID: "t1"})).To(Succeed())
		Expect(tg.SendTest(context.Background(), "1")).To(MatchError(errs.ErrNotConfigured))
	})

	It("surfaces api errors on test messages", func() {
		tg := notify.NewTelegram(client, nil, logging.Discard())
		Expect(tg.SendTest(context.Background(), "404")).To(MatchError(ContainSubstring("chat not found")))
		Expect(tg.SendTest(context.Background(), "55")).To(Succeed())
	})

	It("discovers the chat of the latest message", func() {
		tg := notify.NewTelegram(client, nil, logging.Discard())
		id, err := tg.DiscoverChatID(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("-100222"))
	})
})
