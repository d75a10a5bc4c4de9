package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andrej220/wpdeploy/pkg/inventory"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 10 * time.Second

type ResilienceConfig struct {
	BackoffSettings        *backoff.ExponentialBackOff
	CircuitBreakerSettings gobreaker.Settings
	CircuitBreaker         *gobreaker.CircuitBreaker
}

type ResilientSSHClient struct {
	SSHClient *ssh.Client
	ResConf   *ResilienceConfig
}

func NewResilienceConfig(defaultBackOff *backoff.ExponentialBackOff, cbs gobreaker.Settings) *ResilienceConfig {
	return &ResilienceConfig{
		BackoffSettings:        defaultBackOff,
		CircuitBreakerSettings: cbs,
		CircuitBreaker:         gobreaker.NewCircuitBreaker(cbs),
	}
}

// DefaultResilienceConfig retries session creation for up to half a minute and
// trips the breaker after five consecutive failures.
func DefaultResilienceConfig(name string) *ResilienceConfig {
	cbs := gobreaker.Settings{
		Name:        "ssh-" + name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return NewResilienceConfig(
		&backoff.ExponentialBackOff{
			InitialInterval:     500 * time.Millisecond,
			MaxInterval:         5 * time.Second,
			MaxElapsedTime:      30 * time.Second,
			Multiplier:          1.5,
			RandomizationFactor: 0.5,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		},
		cbs,
	)
}

func (c *ResilientSSHClient) Close() error {
	return c.SSHClient.Close()
}

// NewResilientClient dials remote with config.
func NewResilientClient(remote string, config *ssh.ClientConfig, resConf *ResilienceConfig) (*ResilientSSHClient, error) {
	client, err := ssh.Dial("tcp", remote, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", remote, err)
	}
	if resConf == nil {
		resConf = DefaultResilienceConfig(remote)
	}
	return &ResilientSSHClient{
		SSHClient: client,
		ResConf:   resConf,
	}, nil
}

// ClientConfig builds the SSH client configuration for host. keyPath is used
// unless the host names its own identity file.
func ClientConfig(host *inventory.Host, keyPath string) (*ssh.ClientConfig, error) {
	if host.IdentityFile != "" {
		keyPath = host.IdentityFile
	}
	auth, err := publicKeyAuth(keyPath)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(host.SSHOptions)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeys,
		Timeout:         dialTimeout,
		BannerCallback:  func(message string) error { return nil }, //ignore banner
	}, nil
}

// hostKeyCallback honours StrictHostKeyChecking and UserKnownHostsFile the
// way the OpenSSH client does for the two values the inventory injects.
func hostKeyCallback(opts map[string]string) (ssh.HostKeyCallback, error) {
	if opts["StrictHostKeyChecking"] == "no" || opts["UserKnownHostsFile"] == os.DevNull {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := opts["UserKnownHostsFile"]
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("load known hosts %s: %w", file, err)
	}
	return cb, nil
}

func publicKeyAuth(privateKeyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}
