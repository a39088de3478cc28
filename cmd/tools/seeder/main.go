// Command seeder fills a development database with demo orders covering every
// volume tier and lifecycle state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-photoedit/internal/db"
	"github.com/noah-isme/backend-photoedit/internal/events"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/order"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

type demoOrder struct {
	User     string
	Photos   int
	Services []pricing.ServiceID
	Notes    string
	Status   []order.Status
	Payment  []order.PaymentStatus
	Revision bool
}

var demoOrders = []demoOrder{
	{User: "agent-ayu", Photos: 5, Notes: "front elevation only"},
	{User: "agent-ayu", Photos: 9, Services: []pricing.ServiceID{pricing.Decluttering}, Payment: []order.PaymentStatus{order.PaymentProcessing}},
	{
		User:     "agent-bima",
		Photos:   10,
		Services: []pricing.ServiceID{pricing.VirtualStaging},
		Status:   []order.Status{order.StatusProcessing},
		Payment:  []order.PaymentStatus{order.PaymentProcessing, order.PaymentSucceeded},
	},
	{
		User:     "agent-bima",
		Photos:   20,
		Services: []pricing.ServiceID{pricing.TwilightConversion, pricing.Decluttering},
		Status:   []order.Status{order.StatusProcessing, order.StatusCompleted},
		Payment:  []order.PaymentStatus{order.PaymentProcessing, order.PaymentSucceeded},
		Revision: true,
	},
	{User: "agent-citra", Photos: 14, Status: []order.Status{order.StatusFailed}, Payment: []order.PaymentStatus{order.PaymentFailed}},
}

func main() {
	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	flag.Parse()

	logger := obs.NewLogger("console", "info")
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, db.PoolOptions{URL: dsn, ApplicationName: "photoedit-seeder"})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if *migrate {
		if err := db.Migrate(pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	eventStore := events.PgStore{DB: pool}
	svc := &order.Service{
		Store:    order.PgStore{DB: pool},
		Events:   &events.Bus{Store: eventStore},
		History:  eventStore,
		Currency: "USD",
		Logger:   logger,
	}

	seeded := 0
	for i, d := range demoOrders {
		if err := seed(ctx, svc, d, logger); err != nil {
			logger.Error().Err(err).Int("index", i).Str("user", d.User).Msg("seed order")
			continue
		}
		seeded++
	}
	logger.Info().Int("orders", seeded).Msg("seeding completed")
}

func seed(ctx context.Context, svc *order.Service, d demoOrder, logger zerolog.Logger) error {
	sel, err := pricing.SelectionOf(d.Services...)
	if err != nil {
		return err
	}
	keys := make([]string, d.Photos)
	for i := range keys {
		keys[i] = fmt.Sprintf("uploads/%s/listing-%02d.jpg", d.User, i+1)
	}
	o, err := svc.Submit(ctx, d.User, order.SubmitInput{
		PhotoCount: d.Photos,
		PhotoKeys:  keys,
		Services:   sel,
		Notes:      d.Notes,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	for _, st := range d.Payment {
		if o, err = svc.UpdatePaymentStatus(ctx, o.ID, st); err != nil {
			return fmt.Errorf("payment %s: %w", st, err)
		}
	}
	for _, st := range d.Status {
		if o, err = svc.TransitionStatus(ctx, o.ID, st); err != nil {
			return fmt.Errorf("status %s: %w", st, err)
		}
	}
	if d.Revision {
		photos := []order.RevisionPhoto{
			{PhotoKey: keys[0], Feedback: "sky looks oversaturated"},
			{PhotoKey: keys[1], Feedback: "remove the car in the driveway"},
		}
		if _, err := svc.RequestRevision(ctx, d.User, o.ID, photos); err != nil {
			return fmt.Errorf("revision: %w", err)
		}
	}
	logger.Info().
		Str("order_id", o.ID.String()).
		Str("user", d.User).
		Int("photos", o.PhotoCount).
		Str("total", o.Total.String()).
		Str("status", string(o.Status)).
		Msg("order seeded")
	return nil
}
