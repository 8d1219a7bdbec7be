package remote_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/mentor-queue/internal/database"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
	"github.com/psds-microservice/mentor-queue/internal/store/remote"
)

// Хранилище проверяется на sqlite: запросы gorm те же, что и для Postgres.
var _ = Describe("Store", func() {
	var (
		ctx context.Context
		s   *remote.Store
		bus *store.Bus
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := database.OpenLocal(filepath.Join(GinkgoT().TempDir(), "remote.db"), logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = database.Close(db) })
		Expect(remote.AutoMigrate(db)).To(Succeed())

		bus = store.NewBus()
		s, err = remote.New(db, bus, 1, logging.Discard())
		Expect(err).NotTo(HaveOccurred())
	})

	newTicket := func(name string, createdAt int64) *model.Ticket {
		return &model.Ticket{
			ID:           "client-id",
			StudentName:  name,
			Reason:       "[Copywriting / VSL] hook review",
			Availability: "today 18h",
			Status:       model.TicketStatusPending,
			CreatedAt:    createdAt,
			CreatedBy:    "session-1",
		}
	}

	It("stores tickets under a generated key and publishes the change", func() {
		changes, cancel := s.Subscribe(store.TopicTickets)
		defer cancel()

		id, err := s.CreateTicket(ctx, newTicket("Ana", 1000))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(Equal("client-id"))
		Eventually(changes).Should(Receive())

		got, err := s.GetTicket(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.StudentName).To(Equal("Ana"))
		Expect(got.CreatedAt).To(Equal(int64(1000)))
		Expect(got.Status).To(Equal(model.TicketStatusPending))
	})

	It("merges patches without touching createdAt", func() {
		id, err := s.CreateTicket(ctx, newTicket("Ana", 1000))
		Expect(err).NotTo(HaveOccurred())

		patch := model.StatusPatch(model.TicketStatusResolved)
		by := "Muzeira"
		patch.ResolvedBy = &by
		Expect(s.UpdateTicket(ctx, id, patch)).To(Succeed())

		got, err := s.GetTicket(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(model.TicketStatusResolved))
		Expect(got.ResolvedBy).To(Equal("Muzeira"))
		Expect(got.CreatedAt).To(Equal(int64(1000)))
		Expect(got.Availability).To(Equal("today 18h"))
	})

	It("reports missing tickets", func() {
		_, err := s.GetTicket(ctx, "nope")
		Expect(err).To(MatchError(errs.ErrTicketNotFound))
		Expect(s.UpdateTicket(ctx, "nope", model.AvailabilityPatch("later"))).To(MatchError(errs.ErrTicketNotFound))
	})

	It("deletes a batch of tickets", func() {
		a, _ := s.CreateTicket(ctx, newTicket("A", 1))
		b, _ := s.CreateTicket(ctx, newTicket("B", 2))
		c, _ := s.CreateTicket(ctx, newTicket("C", 3))

		Expect(s.DeleteTickets(ctx, []string{a, c})).To(Succeed())
		items, err := s.ListTickets(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].ID).To(Equal(b))
	})

	It("updates presence per mentor", func() {
		Expect(s.SetPresence(ctx, "muzeira", true)).To(Succeed())
		Expect(s.SetPresence(ctx, "kayo", false)).To(Succeed())
		Expect(s.SetPresence(ctx, "kayo", true)).To(Succeed())
		Expect(s.SetPresence(ctx, "muzeira", false)).To(Succeed())

		p, err := s.GetPresence(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(map[string]bool{"muzeira": false, "kayo": true}))
	})

	It("keeps notification settings", func() {
		cfg, err := s.GetEmailConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(BeNil())

		Expect(s.SaveEmailConfig(ctx, model.EmailConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk"})).To(Succeed())
		Expect(s.SaveEmailConfig(ctx, model.EmailConfig{ServiceID: "svc2", TemplateID: "tpl", PublicKey: "pk"})).To(Succeed())
		cfg, err = s.GetEmailConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ServiceID).To(Equal("svc2"))

		Expect(s.PutTelegramDestination(ctx, model.TelegramDestination{ChatID: "-100", Name: "group", ConnectedAt: 5})).To(Succeed())
		Expect(s.PutTelegramDestination(ctx, model.TelegramDestination{ChatID: "-100", Name: "renamed", ConnectedAt: 6})).To(Succeed())
		chats, err := s.ListTelegramDestinations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(chats).To(HaveLen(1))
		Expect(chats[0].Name).To(Equal("renamed"))
	})
})

var _ = Describe("RedisFeed", func() {
	It("delivers published topics across clients", func() {
		url := os.Getenv("REDIS_URL")
		if url == "" {
			Skip("REDIS_URL not set")
		}
		ctx := context.Background()
		client, err := remote.DialRedis(ctx, url)
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()

		feed := remote.NewRedisFeed(client, "mentor-queue:test", logging.Discard())
		ch, cancel := feed.Subscribe(store.TopicPresence)
		defer cancel()
		time.Sleep(100 * time.Millisecond)

		Expect(feed.Publish(ctx, store.TopicTickets)).To(Succeed())
		Expect(feed.Publish(ctx, store.TopicPresence)).To(Succeed())
		Eventually(ch, 2*time.Second).Should(Receive())
	})
})
