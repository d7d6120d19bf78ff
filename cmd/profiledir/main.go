package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"profiledir/internal/api"
	"profiledir/internal/backends"
	"profiledir/internal/directory"
	"profiledir/internal/ports"
	"profiledir/internal/pub"
	"profiledir/internal/search"
	"profiledir/internal/teams"
	"profiledir/internal/templates"
	"profiledir/internal/throttle"
	"profiledir/internal/types"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	settings, err := types.LoadSettings(os.Getenv("SETTINGS_FILE"))
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	store, err := backends.DocBackendFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}

	notifier, err := notifierFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize notifier: %v", err)
	}

	daily := throttle.NewDaily(settings.DailyCallLimit)
	dir := directory.New(store, daily, settings.CacheCapacity)
	endpoints := teams.NewEndpointStore(store)
	registry := teams.NewRegistry(store, daily, notifier, endpoints, settings)
	tpl := templates.NewStore(store, search.NewFuzzy())

	h := api.NewHandler(dir, registry, endpoints, tpl)
	api.RunServer(settings.ListenPort, h)
}

// notifierFromEnv selects the outbound delivery mechanism: direct HTTP posts
// by default, SNS when NOTIFIER=sns (endpoint URLs are then topic ARNs).
func notifierFromEnv() (ports.TeamNotifier, error) {
	if os.Getenv("NOTIFIER") != "sns" {
		return pub.NewWebhook(nil), nil
	}

	var snsEndpoint *string
	if se := os.Getenv("SNS_ENDPOINT"); se != "" {
		snsEndpoint = aws.String(se)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			// This is used for testing only locally
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			credProvider := credentials.NewStaticCredentialsProvider("test", "test", "")
			o.Credentials = credProvider
		}
	})
	return pub.NewSNS(snsClient), nil
}
