package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "INTAKE_ROBOT_CONFIG"

	inboxAddressEnv   = "INTAKE_INBOX_ADDRESS"
	inboxPasswordEnv  = "INTAKE_INBOX_PASSWORD"
	inboxHostEnv      = "INTAKE_INBOX_IMAP_HOST"
	alertRecipientEnv = "INTAKE_ALERT_RECIPIENT"
	chartingURLEnv    = "CHARTING_BASE_URL"
	chartingUserEnv   = "CHARTING_USERNAME"
	chartingPassEnv   = "CHARTING_PASSWORD"
	confidenceEnv     = "INTAKE_CONFIDENCE_THRESHOLD"
	driveCredsEnv     = "DRIVE_CREDENTIALS_PATH"
	driveRootEnv      = "DRIVE_ROOT_FOLDER_ID"
	sampleModeEnv     = "INTAKE_SAMPLE_MODE"
	localPortEnv      = "INTAKE_LOCAL_PORT"
	smtpHostEnv       = "INTAKE_SMTP_HOST"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Drive     DriveConfig     `yaml:"drive"`
	Charting  ChartingConfig  `yaml:"charting"`
	Alerts    AlertConfig     `yaml:"alerts"`
	Intake    IntakeConfig    `yaml:"intake"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines when intake runs execute.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// InboxConfig wires the referral mailbox the robot polls.
type InboxConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	IMAPHost string `yaml:"imapHost"`
	Folder   string `yaml:"folder"`
}

// DriveConfig describes the remote folder store.
type DriveConfig struct {
	CredentialsPath string `yaml:"credentialsPath"`
	RootFolderID    string `yaml:"rootFolderId"`
}

// ChartingConfig defines how to reach the charting system's form UI.
type ChartingConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	ServeMock bool   `yaml:"serveMock"`
	LocalPort int    `yaml:"localPort"`
}

// AlertConfig encapsulates outbound operator notifications.
type AlertConfig struct {
	Recipient string `yaml:"recipient"`
	SMTPHost  string `yaml:"smtpHost"`
	SMTPPort  int    `yaml:"smtpPort"`
	Sender    string `yaml:"sender"`
	Password  string `yaml:"password"`
}

// IntakeConfig holds pipeline behavior knobs and local directories.
type IntakeConfig struct {
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"`
	SampleMode          bool    `yaml:"sampleMode"`
	InboxDir            string  `yaml:"inboxDir"`
	ArchiveDir          string  `yaml:"archiveDir"`
	ExceptionsDir       string  `yaml:"exceptionsDir"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	setString := func(env string, target *string) {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}

	setString(inboxAddressEnv, &c.Inbox.Address)
	setString(inboxPasswordEnv, &c.Inbox.Password)
	setString(inboxHostEnv, &c.Inbox.IMAPHost)
	setString(alertRecipientEnv, &c.Alerts.Recipient)
	setString(smtpHostEnv, &c.Alerts.SMTPHost)
	setString(chartingURLEnv, &c.Charting.BaseURL)
	setString(chartingUserEnv, &c.Charting.Username)
	setString(chartingPassEnv, &c.Charting.Password)
	setString(driveCredsEnv, &c.Drive.CredentialsPath)
	setString(driveRootEnv, &c.Drive.RootFolderID)

	if v := os.Getenv(confidenceEnv); v != "" {
		if parsed, err := parseFloat(v); err == nil {
			c.Intake.ConfidenceThreshold = parsed
		} else {
			log.Printf("config: invalid %s=%q: %v", confidenceEnv, v, err)
		}
	}

	if v := os.Getenv(sampleModeEnv); v != "" {
		c.Intake.SampleMode = v == "1" || v == "true" || v == "yes"
	}

	if v := os.Getenv(localPortEnv); v != "" {
		if parsed, err := parseInt(v); err == nil {
			c.Charting.LocalPort = parsed
		} else {
			log.Printf("config: invalid %s=%q: %v", localPortEnv, v, err)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Inbox.Address != "" {
		base.Inbox.Address = override.Inbox.Address
	}
	if override.Inbox.Password != "" {
		base.Inbox.Password = override.Inbox.Password
	}
	if override.Inbox.IMAPHost != "" {
		base.Inbox.IMAPHost = override.Inbox.IMAPHost
	}
	if override.Inbox.Folder != "" {
		base.Inbox.Folder = override.Inbox.Folder
	}

	if override.Drive.CredentialsPath != "" {
		base.Drive.CredentialsPath = override.Drive.CredentialsPath
	}
	if override.Drive.RootFolderID != "" {
		base.Drive.RootFolderID = override.Drive.RootFolderID
	}

	if override.Charting.BaseURL != "" {
		base.Charting.BaseURL = override.Charting.BaseURL
	}
	if override.Charting.Username != "" {
		base.Charting.Username = override.Charting.Username
	}
	if override.Charting.Password != "" {
		base.Charting.Password = override.Charting.Password
	}
	if override.Charting.LocalPort != 0 {
		base.Charting.LocalPort = override.Charting.LocalPort
	}
	if override.Charting.ServeMock {
		base.Charting.ServeMock = true
	}

	if override.Alerts.Recipient != "" {
		base.Alerts.Recipient = override.Alerts.Recipient
	}
	if override.Alerts.SMTPHost != "" {
		base.Alerts.SMTPHost = override.Alerts.SMTPHost
	}
	if override.Alerts.SMTPPort != 0 {
		base.Alerts.SMTPPort = override.Alerts.SMTPPort
	}
	if override.Alerts.Sender != "" {
		base.Alerts.Sender = override.Alerts.Sender
	}
	if override.Alerts.Password != "" {
		base.Alerts.Password = override.Alerts.Password
	}

	if override.Intake.ConfidenceThreshold != 0 {
		base.Intake.ConfidenceThreshold = override.Intake.ConfidenceThreshold
	}
	if override.Intake.SampleMode {
		base.Intake.SampleMode = true
	}
	if override.Intake.InboxDir != "" {
		base.Intake.InboxDir = override.Intake.InboxDir
	}
	if override.Intake.ArchiveDir != "" {
		base.Intake.ArchiveDir = override.Intake.ArchiveDir
	}
	if override.Intake.ExceptionsDir != "" {
		base.Intake.ExceptionsDir = override.Intake.ExceptionsDir
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{CronExpression: "*/15 * * * *", Timezone: defaultTimezone, location: tz},
		Inbox: InboxConfig{
			Address:  "",
			IMAPHost: "imap.gmail.com:993",
			Folder:   "INBOX",
		},
		Drive: DriveConfig{
			CredentialsPath: "credentials.json",
			RootFolderID:    "",
		},
		Charting: ChartingConfig{
			BaseURL:   "http://localhost:8000/charting",
			ServeMock: true,
			LocalPort: 8000,
		},
		Alerts: AlertConfig{
			Recipient: "",
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
		},
		Intake: IntakeConfig{
			ConfidenceThreshold: 0.95,
			SampleMode:          false,
			InboxDir:            "data/inbox",
			ArchiveDir:          "data/archive",
			ExceptionsDir:       "data/exceptions",
		},
	}
}

func parseFloat(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

func parseInt(v string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v))
}
