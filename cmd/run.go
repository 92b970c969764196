package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/answer/rules"
	"github.com/spigell/apply-pilot/internal/ats"
	"github.com/spigell/apply-pilot/internal/driver"
	"github.com/spigell/apply-pilot/internal/driver/browser"
	"github.com/spigell/apply-pilot/internal/filtering"
	"github.com/spigell/apply-pilot/internal/jobs"
	"github.com/spigell/apply-pilot/internal/ledger"
	"github.com/spigell/apply-pilot/internal/logger"
	"github.com/spigell/apply-pilot/internal/pacing"
	"github.com/spigell/apply-pilot/internal/profile"
	"github.com/spigell/apply-pilot/internal/provider"
	"github.com/spigell/apply-pilot/internal/provider/gemini"
	"github.com/spigell/apply-pilot/internal/secrets"
)

const (
	PromptYes             = "Yes"
	PromptNo              = "No"
	PromptBack            = "back"
	PromptReportByCompany = "Report by companies"
	PromptManualApply     = "Apply jobs in manual mode"
	PromptJobsToFile      = "Dump jobs to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo, PromptReportByCompany, PromptManualApply, PromptJobsToFile},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the apply-pilot main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude jobs if already applied")
	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation if found suitable jobs")
	runCmd.Flags().Bool("dry-run", false, "filter and pace jobs, log what would be applied to, do not open the browser")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the apply-pilot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if strings.TrimSpace(config.Profile) == "" {
		logger.Fatal("profile path is required under the 'profile' key")
	}
	if strings.TrimSpace(config.Jobs) == "" {
		logger.Fatal("jobs queue path is required under the 'jobs' key")
	}

	prof, err := profile.Load(config.Profile)
	if err != nil {
		logger.Fatal("loading profile", zap.Error(err))
	}

	logger.Info("loaded profile",
		zap.String("name", prof.FullName()),
		zap.Float64("experience_years", prof.TotalExperienceYears()),
	)

	store, err := ledger.Open(config.DataDir, logger)
	if err != nil {
		logger.Fatal("opening application ledger", zap.Error(err))
	}
	defer store.Close()

	queue, err := jobs.FromFile(config.Jobs)
	if err != nil {
		logger.Fatal("loading jobs queue", zap.Error(err))
	}

	if dropped := queue.Dedupe(ledger.NormalizeURL); dropped > 0 {
		logger.Info("dropped duplicate jobs from the queue", zap.Int("count", dropped))
	}

	logger.Info("loaded jobs queue", zap.Int("count", queue.Len()))

	if queue.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs in the queue"))
		return
	}

	queue, err = runFilters(ctx, cmd, config, prof, store, queue, logger)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if queue.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	engine, err := buildEngine(ctx, config, prof, logger)
	if err != nil {
		logger.Fatal("building answer engine", zap.Error(err))
	}

	pacer, err := pacing.New(config.Pacing)
	if err != nil {
		logger.Fatal("configuring pacing", zap.Error(err))
	}

	runner := &applyRunner{
		config:  config,
		profile: prof,
		store:   store,
		engine:  engine,
		pacer:   pacer,
		prober:  ats.NewProber(logger),
		logger:  logger,
		dryRun:  cmd.Flag("dry-run").Value.String() == "true",
	}

	action := PromptYes
	for {
		var err error
		if cmd.Flag("auto-aprove").Value.String() == "false" {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of jobs", zap.Int("count", queue.Len()))

		if err := handleAction(ctx, action, runner, queue); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if cmd.Flag("auto-aprove").Value.String() == "true" {
			return
		}
	}
}

func handleAction(ctx context.Context, action string, runner *applyRunner, queue *jobs.List) error {
	switch action {
	case PromptYes:
		return runner.applyAll(ctx, queue)
	case PromptNo:
		runner.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptManualApply:
		return manualApply(ctx, runner, queue)
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(queue.ReportByCompany(), "", "  ")
		runner.logger.Info(string(pretty), zap.Int("jobs count", queue.Len()))
		return nil
	case PromptJobsToFile:
		filename, err := queue.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump jobs to file: %w", err)
		}
		runner.logger.Info("dumping jobs to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func runFilters(ctx context.Context, cmd *cobra.Command, config *Config, prof *profile.Profile, store *ledger.Store, queue *jobs.List, logger *zap.Logger) (*jobs.List, error) {
	ignore := false
	if flag := cmd.Flag("do-not-exclude-applied"); flag != nil && strings.EqualFold(flag.Value.String(), "true") {
		ignore = true
	}

	dailyCap := 0
	if config.Apply != nil {
		dailyCap = config.Apply.DailyCap
	}

	cfg := &filtering.Config{
		DesiredTitles:    prof.Preferences.DesiredTitles,
		ExcludeKeywords:  prof.Preferences.ExcludeKeywords,
		ExcludeCompanies: prof.Preferences.ExcludeCompanies,
		DailyCap:         dailyCap,
	}

	deps := filtering.Deps{History: store, Logger: logger}

	return filtering.Run(ctx, cfg, deps, filtering.Default(ignore), queue)
}

// buildEngine wires the rule resolver and, when enabled, the Gemini-backed
// provider into the answer engine. Without AI configured the engine runs on
// rules alone.
func buildEngine(ctx context.Context, config *Config, prof *profile.Profile, logger *zap.Logger) (*answer.Engine, error) {
	resolver := rules.New(prof)

	if config.AI == nil || !config.AI.Enabled {
		logger.Info("language-model provider disabled, running on rules only")
		return answer.NewEngine(resolver, nil, logger), nil
	}

	name := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if name != "" && name != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	if config.AI.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", config.AI.Gemini.Model),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model, config.AI.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	answerer, err := provider.NewAnswerer(generator, prof, logger, config.AI.Gemini.MaxLogLength)
	if err != nil {
		return nil, err
	}

	return answer.NewEngine(resolver, answerer, logger), nil
}

type applyRunner struct {
	config  *Config
	profile *profile.Profile
	store   *ledger.Store
	engine  *answer.Engine
	pacer   *pacing.Pacer
	prober  *ats.Prober
	logger  *zap.Logger
	dryRun  bool
}

// applyAll walks the queue and applies to each job in order, pacing the
// submissions. Per-job failures are logged and skipped so one broken form
// does not end the whole session.
func (r *applyRunner) applyAll(ctx context.Context, queue *jobs.List) error {
	session, err := browser.NewSession(ctx, r.config.Browser, r.logger)
	if err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}
	defer session.Close()

	d := driver.New(session, r.engine, r.store, r.profile, r.logger)

	var submitted, skipped int
	for _, job := range queue.Items {
		if err := r.applyOne(ctx, d, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Warn("skipping job",
				zap.String("url", job.URL),
				zap.Error(err),
			)
			skipped++
			continue
		}
		submitted++
	}

	r.logger.Info("application session finished",
		zap.Int("submitted", submitted),
		zap.Int("skipped", skipped),
	)

	queue.Items = nil

	return errExit
}

func (r *applyRunner) applyOne(ctx context.Context, d *driver.Driver, job *jobs.Job) error {
	platform := ats.Detect(job.URL)
	if job.Platform == "" {
		job.Platform = string(platform)
	}

	if !platform.SupportsAutofill() {
		return fmt.Errorf("platform %s is not supported for autofill", platform)
	}

	if err := r.prober.Probe(ctx, job.URL); err != nil {
		return err
	}

	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}

	if r.dryRun {
		r.logger.Info("dry run, not submitting",
			zap.String("url", job.URL),
			zap.String("platform", string(platform)),
		)
		return nil
	}

	return d.Apply(ctx, job)
}

func manualApply(ctx context.Context, runner *applyRunner, queue *jobs.List) error {
	for {
		items := make([]string, 0, queue.Len())
		for _, job := range queue.Items {
			items = append(items, fmt.Sprintf("%s / %s / %s", job.Title, job.Company, job.URL))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		parts := strings.Split(selected, " / ")
		url := parts[len(parts)-1]

		job := queue.FindByURL(url)
		if job == nil {
			return fmt.Errorf("there is no such job %s", url)
		}

		single := &jobs.List{Items: []*jobs.Job{job}}
		if err := runner.applyAll(ctx, single); err != nil && !errors.Is(err, errExit) {
			return err
		}

		queue.Exclude(func(j *jobs.Job) bool { return j.URL == url })
		if queue.Len() == 0 {
			return nil
		}
	}
}
