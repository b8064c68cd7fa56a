package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"conclave/internal/platform/messaging"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	GovName                 string
	GovSymbol               string
	GovPaused               bool
	GovMembers              []Member
	GovVotingPeriod         time.Duration
	GovQuorumPercent        uint64
	GovSupermajorityPercent uint64

	EnableOutboxRelay  bool
	OutboxRelayBatch   int
	OutboxRelayEvery   time.Duration
	EnableEventMirror  bool
	EventMirrorTopics  []string
	EventMirrorGroupID string
}

// Member is one founding account and its initial voting weight.
type Member struct {
	Account string
	Weight  uint64
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "conclave"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	members, err := parseMembers(os.Getenv("GOV_MEMBERS"))
	if err != nil {
		return Config{}, err
	}

	votingPeriod, err := envDuration("GOV_VOTING_PERIOD", 72*time.Hour)
	if err != nil {
		return Config{}, err
	}
	quorum, err := envUint("GOV_QUORUM_PERCENT", 0)
	if err != nil {
		return Config{}, err
	}
	supermajority, err := envUint("GOV_SUPERMAJORITY_PERCENT", 60)
	if err != nil {
		return Config{}, err
	}
	relayBatch, err := envUint("OUTBOX_RELAY_BATCH", 50)
	if err != nil {
		return Config{}, err
	}
	relayEvery, err := envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	name := os.Getenv("GOV_NAME")
	if name == "" {
		name = "Conclave"
	}
	symbol := os.Getenv("GOV_SYMBOL")
	if symbol == "" {
		symbol = "CNCLV"
	}

	var mirrorTopics []string
	for _, value := range strings.Split(os.Getenv("EVENT_MIRROR_TOPICS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			mirrorTopics = append(mirrorTopics, value)
		}
	}
	if len(mirrorTopics) == 0 {
		mirrorTopics = []string{
			messaging.TopicProposalCreated,
			messaging.TopicProposalCancelled,
			messaging.TopicProposalFinalized,
			messaging.TopicVoteCast,
		}
	}

	mirrorGroup := os.Getenv("EVENT_MIRROR_GROUP_ID")
	if mirrorGroup == "" {
		mirrorGroup = service + "-event-mirror"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		GovName:                 name,
		GovSymbol:               symbol,
		GovPaused:               envBool("GOV_PAUSED", false),
		GovMembers:              members,
		GovVotingPeriod:         votingPeriod,
		GovQuorumPercent:        quorum,
		GovSupermajorityPercent: supermajority,

		EnableOutboxRelay:  envBool("ENABLE_OUTBOX_RELAY", true),
		OutboxRelayBatch:   int(relayBatch),
		OutboxRelayEvery:   relayEvery,
		EnableEventMirror:  envBool("ENABLE_EVENT_MIRROR", true),
		EventMirrorTopics:  mirrorTopics,
		EventMirrorGroupID: mirrorGroup,
	}, nil
}

// parseMembers accepts "account:weight" pairs separated by commas, for
// example "alice:40,bob:35,carol:25". An empty value yields no members.
func parseMembers(raw string) ([]Member, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var members []Member
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		account, weightRaw, found := strings.Cut(pair, ":")
		account = strings.TrimSpace(account)
		if !found || account == "" {
			return nil, fmt.Errorf("config: malformed GOV_MEMBERS entry %q", pair)
		}
		weight, err := strconv.ParseUint(strings.TrimSpace(weightRaw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: malformed GOV_MEMBERS weight in %q: %w", pair, err)
		}
		members = append(members, Member{Account: account, Weight: weight})
	}
	return members, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(name string, fallback uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a non-negative integer: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a Go duration such as 72h: %w", name, err)
	}
	return value, nil
}
