// Package config manages user-level settings stored at ~/.ika/config.yaml.
// Settings cover the external tool binaries (sui, npm, git) and the local
// validator readiness probe (address, retry budget, backoff interval). Every
// key can be overridden through an IKA_ prefixed environment variable.
package config
