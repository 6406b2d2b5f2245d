package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"onboarding-agent/handler"
	"onboarding-agent/internal/integrations/openai"
	"onboarding-agent/internal/integrations/paramstore"
	"onboarding-agent/internal/onboarding"
	"onboarding-agent/internal/registry"
	"onboarding-agent/internal/repository"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	sessionTable := mustEnv("SESSION_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	model := os.Getenv("OPENAI_MODEL")
	stepsFile := os.Getenv("STEPS_FILE")
	paraTimeout := time.Duration(envInt("PARAPHRASE_TIMEOUT_MS", 5000)) * time.Millisecond

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	sessionStore, err := repository.New(awsdynamodb.NewFromConfig(cfg), sessionTable)
	if err != nil {
		slog.Error("failed to create session store", "err", err)
		os.Exit(1)
	}

	paraOpts := []openai.Option{openai.WithModel(model)}
	if prompt, ok, err := ssmClient.GetOptional(ctx, paramPrefix+"/paraphrase_prompt"); err != nil {
		slog.Error("failed to read paraphrase prompt", "err", err)
		os.Exit(1)
	} else if ok {
		paraOpts = append(paraOpts, openai.WithSystemPrompt(prompt))
	}
	paraphraser, err := openai.NewClient(
		openai.KeyFromParamStore(ssmClient, paramPrefix+"/open-ai-token"),
		paraOpts...,
	)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Step catalog ----
	steps := registry.Default()
	if stepsFile != "" {
		steps, err = registry.LoadFile(stepsFile)
		if err != nil {
			slog.Error("failed to load step catalog", "path", stepsFile, "err", err)
			os.Exit(1)
		}
	}

	// ---- Handler ----
	svc, err := onboarding.NewService(steps, sessionStore, paraphraser,
		onboarding.WithParaphraseTimeout(paraTimeout))
	if err != nil {
		slog.Error("failed to create onboarding service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(svc)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
