package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/mentor-queue/internal/application"
	"github.com/psds-microservice/mentor-queue/internal/kafka"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Check notification channels and replay ticket events",
}

var testTelegramCmd = &cobra.Command{
	Use:   "test-telegram <chat-id>",
	Short: "Send a test message to a Telegram chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestTelegram,
}

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a test email to every address in NOTIFY_EMAILS",
	RunE:  runTestEmail,
}

var discoverChatCmd = &cobra.Command{
	Use:   "discover-chat",
	Short: "Print the id of the chat that last wrote to the bot",
	RunE:  runDiscoverChat,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Publish every ticket to KAFKA_TOPIC_TICKET again",
	RunE:  runReplay,
}

var emailFlags struct {
	serviceID  string
	templateID string
	publicKey  string
}

func init() {
	f := testEmailCmd.Flags()
	f.StringVar(&emailFlags.serviceID, "service", "", "EmailJS service id (default: saved configuration)")
	f.StringVar(&emailFlags.templateID, "template", "", "EmailJS template id (default: saved configuration)")
	f.StringVar(&emailFlags.publicKey, "public-key", "", "EmailJS public key (default: saved configuration)")

	notifyCmd.AddCommand(testTelegramCmd, testEmailCmd, discoverChatCmd, replayCmd)
}

// withStack собирает зависимости, выполняет fn с таймаутом и закрывает их.
func withStack(timeout time.Duration, fn func(ctx context.Context, s *application.Stack) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s, err := application.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func runTestTelegram(cmd *cobra.Command, args []string) error {
	return withStack(30*time.Second, func(ctx context.Context, s *application.Stack) error {
		if err := s.Facade.SendTestNotification(ctx, args[0]); err != nil {
			return err
		}
		s.Log.WithField("chat_id", args[0]).Info("notify: test message sent")
		return nil
	})
}

func runTestEmail(cmd *cobra.Command, args []string) error {
	return withStack(time.Minute, func(ctx context.Context, s *application.Stack) error {
		cfg := model.EmailConfig{
			ServiceID:  emailFlags.serviceID,
			TemplateID: emailFlags.templateID,
			PublicKey:  emailFlags.publicKey,
		}
		if !cfg.Complete() && s.Facade.IsSystemOnline() {
			saved, err := s.Facade.EmailConfig(ctx)
			if err != nil {
				return err
			}
			if saved != nil {
				cfg = merge(cfg, *saved)
			}
		}
		if err := s.Facade.SendTestEmail(ctx, cfg); err != nil {
			return err
		}
		s.Log.WithField("recipients", len(s.Config.NotifyEmails)).Info("notify: test email sent")
		return nil
	})
}

// merge дополняет пустые поля из флагов сохранённой настройкой.
func merge(flags, saved model.EmailConfig) model.EmailConfig {
	if flags.ServiceID == "" {
		flags.ServiceID = saved.ServiceID
	}
	if flags.TemplateID == "" {
		flags.TemplateID = saved.TemplateID
	}
	if flags.PublicKey == "" {
		flags.PublicKey = saved.PublicKey
	}
	return flags
}

func runDiscoverChat(cmd *cobra.Command, args []string) error {
	return withStack(30*time.Second, func(ctx context.Context, s *application.Stack) error {
		id, err := s.Facade.DiscoverChatID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	})
}

func runReplay(cmd *cobra.Command, args []string) error {
	return withStack(10*time.Minute, func(ctx context.Context, s *application.Stack) error {
		producer := kafka.NewProducer(s.Config.KafkaBrokers, s.Config.KafkaTopicTicket)
		if !producer.Enabled() {
			return errors.New("replay: KAFKA_BROKERS and KAFKA_TOPIC_TICKET are required")
		}
		defer producer.Close()

		tickets, err := s.Facade.Tickets(ctx)
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		s.Log.Infof("replay: found %d tickets", len(tickets))
		for i, t := range tickets {
			if err := producer.ProduceTicketEvent(ctx, notify.EventTicketReplayed, notify.TicketPayload(t)); err != nil {
				return err
			}
			if (i+1)%50 == 0 || i == len(tickets)-1 {
				s.Log.Infof("replay: sent %d/%d events to Kafka", i+1, len(tickets))
			}
		}
		return nil
	})
}
