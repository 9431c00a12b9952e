package vesync_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"
	vesync "github.com/tj-smith47/vesync-go"
)

func ExampleNewClient() {
	client, err := vesync.NewClient("you@example.com", "your-password",
		vesync.WithCountryCode("US"),
		vesync.WithSessionFile("/var/lib/vesync/session.json"),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer client.Stop()

	devices, err := client.ListDevices(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range devices.Purifiers {
		rec := p.Record()
		fmt.Printf("Purifier: %s (%s) on=%v\n", rec.Name, rec.Model, rec.On)
	}
}

func ExampleNewClient_withOptions() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	client, err := vesync.NewClient("you@example.com", "your-password",
		vesync.WithLogger(logger),
		vesync.WithTimeZone("Europe/Berlin"),
		vesync.WithCountryCode("DE"),
		vesync.WithRetry(&vesync.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2.0,
		}),
		vesync.WithRefreshInterval(55*time.Minute),
	)
	if err != nil {
		log.Fatal(err)
	}

	_ = client
}

func ExampleClient_SendCommand() {
	client, _ := vesync.NewClient("you@example.com", "your-password")
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Fatal(err)
	}

	devices, _ := client.ListDevices(ctx)
	if len(devices.Purifiers) == 0 {
		return
	}
	rec := devices.Purifiers[0].Record()

	ok, err := client.SendCommand(ctx, &rec, vesync.NewFanSpeedCommand(2, rec.Capabilities.IsNewGeneration))
	if err != nil {
		log.Fatal(err)
	}
	if !ok {
		fmt.Println("command was not accepted")
	}
}

func ExamplePurifier_Refresh() {
	client, _ := vesync.NewClient("you@example.com", "your-password")
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Fatal(err)
	}

	devices, _ := client.ListDevices(ctx)
	for _, p := range devices.Purifiers {
		if _, err := p.Refresh(ctx); err != nil {
			log.Fatal(err)
		}
		rec := p.Record()
		fmt.Printf("%s: mode=%s speed=%d air quality=%d\n", rec.Name, rec.Mode, rec.Speed, rec.AirQuality)
	}
}

func ExampleIsInvalidCredentials() {
	client, _ := vesync.NewClient("you@example.com", "wrong-password")

	err := client.Start(context.Background())
	switch {
	case vesync.IsInvalidCredentials(err):
		fmt.Println("check your email and password")
	case err != nil:
		fmt.Println("backend unavailable:", err)
	}
}
