package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/models"
)

// ask is swapped in tests.
var ask = survey.Ask

// WizardResult is what the configuration wizard collected. The password is
// returned separately so the caller can keep it out of the config file.
type WizardResult struct {
	Config   *models.Config
	Alias    string
	Password string
}

// ConfigWizard provides an interactive configuration setup
type ConfigWizard struct {
	currentStep int
	totalSteps  int
	base        *models.Config
}

// NewConfigWizard creates a wizard that starts from base.
func NewConfigWizard(base *models.Config) *ConfigWizard {
	return &ConfigWizard{
		currentStep: 1,
		totalSteps:  4,
		base:        base,
	}
}

type connectionAnswers struct {
	Alias    string `survey:"alias"`
	Dialect  string `survey:"dialect"`
	Host     string `survey:"host"`
	Port     string `survey:"port"`
	Database string `survey:"database"`
	User     string `survey:"user"`
	Password string `survey:"password"`
	Account  string `survey:"account"`
	Role     string `survey:"role"`
}

type storageAnswers struct {
	Region     string `survey:"region"`
	IAMRoleARN string `survey:"iam_role_arn"`
	Events     string `survey:"events"`
	JSONPaths  string `survey:"json_paths"`
	Songs      string `survey:"songs"`
}

type pipelineAnswers struct {
	FailFast  bool   `survey:"fail_fast"`
	Preflight bool   `survey:"preflight"`
	LogLevel  string `survey:"log_level"`
}

// Run executes the configuration wizard
func (w *ConfigWizard) Run() (*WizardResult, error) {
	ShowHeader("Sparkify DWH - Configuration Setup")

	cfg := w.base
	result := &WizardResult{Config: cfg}

	w.showProgress("Warehouse Connection")
	var conn connectionAnswers
	if err := ask(connectionQuestions(), &conn); err != nil {
		return nil, promptError(err)
	}
	alias, err := applyConnection(cfg, conn)
	if err != nil {
		return nil, err
	}
	result.Alias = alias
	result.Password = conn.Password
	w.currentStep++

	w.showProgress("Object Storage")
	var storage storageAnswers
	if err := ask(storageQuestions(cfg), &storage); err != nil {
		return nil, promptError(err)
	}
	applyStorage(cfg, storage)
	w.currentStep++

	w.showProgress("Pipeline Settings")
	var pipeline pipelineAnswers
	if err := ask(pipelineQuestions(cfg), &pipeline); err != nil {
		return nil, promptError(err)
	}
	applyPipeline(cfg, pipeline)
	w.currentStep++

	if err := w.reviewConfiguration(result); err != nil {
		return nil, err
	}
	return result, nil
}

func connectionQuestions() []*survey.Question {
	return []*survey.Question{
		{
			Name:     "alias",
			Prompt:   &survey.Input{Message: "Connection name:", Default: "redshift"},
			Validate: survey.Required,
		},
		{
			Name: "dialect",
			Prompt: &survey.Select{
				Message: "Warehouse:",
				Options: []string{"redshift", "postgres", "snowflake"},
				Default: "redshift",
			},
		},
		{
			Name: "host",
			Prompt: &survey.Input{
				Message: "Host (leave empty for Snowflake):",
				Help:    "Cluster endpoint, e.g. dwhcluster.abc123.us-west-2.redshift.amazonaws.com",
			},
		},
		{
			Name:   "port",
			Prompt: &survey.Input{Message: "Port (0 for the dialect default):", Default: "0"},
			Validate: func(val interface{}) error {
				if _, err := strconv.Atoi(fmt.Sprint(val)); err != nil {
					return fmt.Errorf("port must be a number")
				}
				return nil
			},
		},
		{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database:", Default: "dev"},
			Validate: survey.Required,
		},
		{
			Name:     "user",
			Prompt:   &survey.Input{Message: "User:"},
			Validate: survey.Required,
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
				Help:    "Stored in the OS keyring, never in the config file",
			},
		},
		{
			Name:   "account",
			Prompt: &survey.Input{Message: "Snowflake account (Snowflake only):"},
		},
		{
			Name:   "role",
			Prompt: &survey.Input{Message: "Snowflake role (Snowflake only):"},
		},
	}
}

func storageQuestions(cfg *models.Config) []*survey.Question {
	events, songs := stagingDefaults(cfg)
	return []*survey.Question{
		{
			Name:   "region",
			Prompt: &survey.Input{Message: "Bucket region:", Default: cfg.AWS.Region},
		},
		{
			Name: "iam_role_arn",
			Prompt: &survey.Input{
				Message: "IAM role ARN:",
				Default: cfg.AWS.IAMRoleARN,
				Help:    "Role the warehouse assumes to read the bucket",
			},
		},
		{
			Name:     "events",
			Prompt:   &survey.Input{Message: "Event log prefix:", Default: events.Source},
			Validate: s3URI,
		},
		{
			Name:   "json_paths",
			Prompt: &survey.Input{Message: "Event JSONPaths file (optional):", Default: events.JSONPaths},
			Validate: func(val interface{}) error {
				if fmt.Sprint(val) == "" {
					return nil
				}
				return s3URI(val)
			},
		},
		{
			Name:     "songs",
			Prompt:   &survey.Input{Message: "Song metadata prefix:", Default: songs.Source},
			Validate: s3URI,
		},
	}
}

func pipelineQuestions(cfg *models.Config) []*survey.Question {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	return []*survey.Question{
		{
			Name:   "fail_fast",
			Prompt: &survey.Confirm{Message: "Stop at the first failed task?", Default: cfg.Pipeline.FailFast},
		},
		{
			Name: "preflight",
			Prompt: &survey.Confirm{
				Message: "Check S3 prefixes before each COPY?",
				Default: cfg.Pipeline.Preflight,
			},
		},
		{
			Name: "log_level",
			Prompt: &survey.Select{
				Message: "Log level:",
				Options: []string{"debug", "info", "warn", "error"},
				Default: level,
			},
		},
	}
}

func s3URI(val interface{}) error {
	if !strings.HasPrefix(fmt.Sprint(val), "s3://") {
		return fmt.Errorf("must be an s3:// URI")
	}
	return nil
}

func applyConnection(cfg *models.Config, a connectionAnswers) (string, error) {
	alias := strings.ToLower(strings.TrimSpace(a.Alias))
	port, err := strconv.Atoi(strings.TrimSpace(a.Port))
	if err != nil && a.Port != "" {
		return "", fmt.Errorf("invalid port %q", a.Port)
	}

	conn := models.Connection{
		Dialect:  a.Dialect,
		Host:     a.Host,
		Port:     port,
		Database: a.Database,
		User:     a.User,
	}
	switch a.Dialect {
	case "snowflake":
		conn.Account = a.Account
		conn.Role = a.Role
		conn.Host = ""
		conn.Port = 0
	case "redshift":
		conn.SSLMode = "require"
		if conn.Port == 0 {
			conn.Port = 5439
		}
	case "postgres":
		if conn.Port == 0 {
			conn.Port = 5432
		}
	}

	if cfg.Connections == nil {
		cfg.Connections = make(map[string]models.Connection)
	}
	cfg.Connections[alias] = conn
	cfg.Connection = alias
	return alias, nil
}

func applyStorage(cfg *models.Config, a storageAnswers) {
	if a.Region != "" {
		cfg.AWS.Region = a.Region
	}
	cfg.AWS.IAMRoleARN = a.IAMRoleARN
	for i := range cfg.Staging {
		switch cfg.Staging[i].Table {
		case "staging_events":
			cfg.Staging[i].Source = a.Events
			cfg.Staging[i].JSONPaths = a.JSONPaths
		case "staging_songs":
			cfg.Staging[i].Source = a.Songs
		}
	}
}

func applyPipeline(cfg *models.Config, a pipelineAnswers) {
	cfg.Pipeline.FailFast = a.FailFast
	cfg.Pipeline.Preflight = a.Preflight
	cfg.Logging.Level = a.LogLevel
}

func stagingDefaults(cfg *models.Config) (events, songs models.StagingSource) {
	for _, s := range cfg.Staging {
		switch s.Table {
		case "staging_events":
			events = s
		case "staging_songs":
			songs = s
		}
	}
	return events, songs
}

func (w *ConfigWizard) reviewConfiguration(result *WizardResult) error {
	w.showProgress("Review Configuration")

	cfg := result.Config
	conn := cfg.Connections[result.Alias]
	events, songs := stagingDefaults(cfg)

	fmt.Fprintln(Output, "\n"+ColorInfo("Configuration Summary:"))
	fmt.Fprintln(Output, strings.Repeat("─", 50))
	PrintKeyValue("Connection", result.Alias+" ("+conn.Dialect+")")
	if conn.Dialect == "snowflake" {
		PrintKeyValue("Account", conn.Account)
	} else {
		PrintKeyValue("Host", fmt.Sprintf("%s:%d", conn.Host, conn.Port))
	}
	PrintKeyValue("Database", conn.Database)
	PrintKeyValue("User", conn.User)
	PrintKeyValue("IAM role", cfg.AWS.IAMRoleARN)
	PrintKeyValue("Events", events.Source)
	PrintKeyValue("Songs", songs.Source)
	PrintKeyValue("Fail fast", strconv.FormatBool(cfg.Pipeline.FailFast))
	fmt.Fprintln(Output, strings.Repeat("─", 50))

	confirm, err := Confirm("Save this configuration?", true)
	if err != nil {
		return err
	}
	if !confirm {
		return ErrCancelled
	}
	return nil
}

func (w *ConfigWizard) showProgress(step string) {
	fmt.Fprintf(Output, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress("►"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}
