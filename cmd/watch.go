package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/mentor-queue/internal/application"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/queue"
)

// SecretEnv: переменная с паролем для watch --login.
const SecretEnv = "MENTOR_QUEUE_SECRET"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the queue as a single client: session, tickets and mentor presence",
	RunE:  runWatch,
}

var watchFlags struct {
	login string
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.login, "login", "", "mentor login; the secret is read from "+SecretEnv)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	secret := os.Getenv(SecretEnv)
	if watchFlags.login != "" && secret == "" {
		return errors.New("watch: " + SecretEnv + " is required with --login")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := application.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	return watch(ctx, s.Facade, cmd.OutOrStdout(), watchFlags.login, secret)
}

// watch открывает сессию клиента, при необходимости входит ментором и печатает
// изменения до отмены ctx.
func watch(ctx context.Context, f *queue.Facade, out io.Writer, login, secret string) error {
	var mu sync.Mutex
	printf := func(format string, a ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, a...)
	}

	stopSession := f.SubscribeToSession(func(sess *model.Session) {
		switch {
		case sess == nil:
			printf("session: none\n")
		case sess.IsAnonymous:
			printf("session: anonymous %s\n", sess.ID)
		default:
			printf("session: %s %s\n", sess.Email, sess.ID)
		}
	})
	defer stopSession()
	f.Start(ctx)

	if login != "" {
		if err := f.Login(ctx, login, secret); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	onError := func(err error) {
		printf("error: %s (%s)\n", errs.Message(err), errs.Classify(err))
	}
	stopTickets := f.Subscribe(ctx, func(items []model.Ticket) {
		v := queue.SplitViews(items)
		printf("tickets: %d pending, %d in history\n", len(v.Pending), v.HistoryTotal)
		for _, t := range v.Pending {
			printf("  %s  %-20s %s | %s\n", t.Status, t.StudentName, t.Reason, t.Availability)
		}
	}, onError)
	defer stopTickets()
	stopPresence := f.SubscribeToPresence(ctx, func(p map[string]bool) {
		printf("presence: %v (any online: %t)\n", p, queue.AnyMentorOnline(p))
	}, onError)
	defer stopPresence()

	<-ctx.Done()
	return nil
}
