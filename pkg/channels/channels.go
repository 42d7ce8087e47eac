package channels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported channel types.
	TypeTelegram = "telegram"
	TypeEmail    = "email"
	TypeSNS      = "sns"
	TypeSQS      = "sqs"
	TypePubSub   = "pubsub"
	TypeWebhook  = "webhook"

	webhookDefaultMethod         = "POST"
	webhookDefaultTimeoutSeconds = 5
	emailDefaultPort             = 587
)

// configFile represents the structure of the channels configuration file.
type configFile struct {
	Channels []ChannelConfig `json:"channels" yaml:"channels"`
}

// ChannelConfig represents a single channel entry declared in config files.
type ChannelConfig struct {
	ID       string                 `json:"id" yaml:"id"`
	Type     string                 `json:"type" yaml:"type"`
	Enabled  *bool                  `json:"enabled" yaml:"enabled"`
	Telegram *TelegramChannelConfig `json:"telegram" yaml:"telegram"`
	Email    *EmailChannelConfig    `json:"email" yaml:"email"`
	SNS      *SNSChannelConfig      `json:"sns" yaml:"sns"`
	SQS      *SQSChannelConfig      `json:"sqs" yaml:"sqs"`
	PubSub   *PubSubChannelConfig   `json:"pubsub" yaml:"pubsub"`
	HTTP     *HTTPChannelConfig     `json:"http" yaml:"http"`
}

// TelegramChannelConfig holds Telegram bot settings.
type TelegramChannelConfig struct {
	Token  string `json:"token" yaml:"token"`
	ChatID string `json:"chat_id" yaml:"chat_id"`
}

// EmailChannelConfig holds SMTP settings.
type EmailChannelConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
}

// SNSChannelConfig holds AWS SNS settings. Exactly one of TopicARN or
// PhoneNumber must be set.
type SNSChannelConfig struct {
	TopicARN    string `json:"topic_arn" yaml:"topic_arn"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	Region      string `json:"region" yaml:"region"`
	AccessKey   string `json:"access_key" yaml:"access_key"`
	SecretKey   string `json:"secret_key" yaml:"secret_key"`
}

// SQSChannelConfig holds AWS SQS settings.
type SQSChannelConfig struct {
	QueueURL  string `json:"uri" yaml:"uri"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// PubSubChannelConfig holds GCP Pub/Sub settings.
type PubSubChannelConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPChannelConfig holds generic webhook sink settings.
type HTTPChannelConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry materializes channel definitions loaded from config files.
type ConfigRegistry struct {
	mu       sync.RWMutex
	channels []ChannelConfig
	idx      map[string]ChannelConfig
}

// LoadRegistry loads the channel registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("channels file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channels file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	fileReg, err := parseChannelRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Channels) == 0 {
		return nil, errors.New("channels file contains no channels entries")
	}

	reg := &ConfigRegistry{
		channels: make([]ChannelConfig, len(fileReg.Channels)),
		idx:      make(map[string]ChannelConfig, len(fileReg.Channels)),
	}

	for i := range fileReg.Channels {
		cfg := sanitizeChannelConfig(fileReg.Channels[i])
		if err := validateChannelConfig(cfg); err != nil {
			return nil, fmt.Errorf("channels[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate channel id %q", cfg.ID)
		}
		reg.channels[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

// parseChannelRegistry attempts to decode the channels file content.
func parseChannelRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalChannelRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("channels file format not recognized (expected YAML or JSON)")
}

// unmarshalChannelRegistry decodes the channels file using the provided function.
func unmarshalChannelRegistry(name string, data []byte, fn func([]byte, any) error) (configFile, error) {
	var reg configFile
	if err := fn(data, &reg); err != nil {
		return configFile{}, fmt.Errorf("decode %s channels: %w", name, err)
	}
	return reg, nil
}

// sanitizeChannelConfig trims and normalizes the channel config fields.
func sanitizeChannelConfig(cfg ChannelConfig) ChannelConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.Telegram != nil {
		c := *cfg.Telegram
		c.Token = strings.TrimSpace(c.Token)
		c.ChatID = strings.TrimSpace(c.ChatID)
		cfg.Telegram = &c
	}
	if cfg.Email != nil {
		c := *cfg.Email
		c.Host = strings.TrimSpace(c.Host)
		c.Username = strings.TrimSpace(c.Username)
		c.From = strings.TrimSpace(c.From)
		c.To = strings.TrimSpace(c.To)
		if c.Port <= 0 {
			c.Port = emailDefaultPort
		}
		if c.From == "" {
			c.From = c.Username
		}
		cfg.Email = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = webhookDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = webhookDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}

	return cfg
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateChannelConfig checks that required fields are present.
func validateChannelConfig(cfg ChannelConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for channel %q", cfg.ID)
	case TypeTelegram:
		if cfg.Telegram == nil {
			return fmt.Errorf("telegram config required for channel %q", cfg.ID)
		}
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required for channel %q", cfg.ID)
		}
		if cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required for channel %q", cfg.ID)
		}
		if _, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id for channel %q is not numeric", cfg.ID)
		}
	case TypeEmail:
		if cfg.Email == nil {
			return fmt.Errorf("email config required for channel %q", cfg.ID)
		}
		if cfg.Email.Host == "" {
			return fmt.Errorf("email.host is required for channel %q", cfg.ID)
		}
		if cfg.Email.To == "" {
			return fmt.Errorf("email.to is required for channel %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for channel %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for channel %q", cfg.ID)
		}
		if (cfg.SNS.TopicARN == "") == (cfg.SNS.PhoneNumber == "") {
			return fmt.Errorf("exactly one of sns.topic_arn or sns.phone_number is required for channel %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for channel %q", cfg.ID)
		}
		if cfg.SQS.QueueURL == "" {
			return fmt.Errorf("sqs.uri is required for channel %q", cfg.ID)
		}
		if cfg.SQS.Region == "" {
			return fmt.Errorf("sqs.region is required for channel %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for channel %q", cfg.ID)
		}
		if cfg.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id is required for channel %q", cfg.ID)
		}
		if cfg.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.topic is required for channel %q", cfg.ID)
		}
	case TypeWebhook:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for channel %q", cfg.ID)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for channel %q", cfg.ID)
		}
	default:
		return fmt.Errorf("unknown type %q for channel %q", cfg.Type, cfg.ID)
	}
	return nil
}

// ByID returns the channel config by id.
func (r *ConfigRegistry) ByID(id string) (ChannelConfig, bool) {
	if r == nil {
		return ChannelConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ChannelConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured channels.
func (r *ConfigRegistry) All() []ChannelConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelConfig, len(r.channels))
	copy(out, r.channels)
	return out
}

// Enabled returns channels that are enabled.
func (r *ConfigRegistry) Enabled() []ChannelConfig {
	if r == nil {
		return nil
	}

	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]ChannelConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg ChannelConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// ApplyOverrides rewrites channel destinations for one run. pushTo replaces
// the destination of push-message channels (telegram chat id, sns phone
// number); emailTo replaces the email recipient. Empty overrides are no-ops.
func ApplyOverrides(cfgs []ChannelConfig, pushTo, emailTo string) []ChannelConfig {
	pushTo = strings.TrimSpace(pushTo)
	emailTo = strings.TrimSpace(emailTo)
	if pushTo == "" && emailTo == "" {
		return cfgs
	}

	out := make([]ChannelConfig, len(cfgs))
	for i, cfg := range cfgs {
		switch cfg.Type {
		case TypeTelegram:
			if pushTo != "" && cfg.Telegram != nil {
				c := *cfg.Telegram
				c.ChatID = pushTo
				cfg.Telegram = &c
			}
		case TypeSNS:
			if pushTo != "" && cfg.SNS != nil && cfg.SNS.PhoneNumber != "" {
				c := *cfg.SNS
				c.PhoneNumber = pushTo
				cfg.SNS = &c
			}
		case TypeEmail:
			if emailTo != "" && cfg.Email != nil {
				c := *cfg.Email
				c.To = emailTo
				cfg.Email = &c
			}
		}
		out[i] = cfg
	}
	return out
}
