package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the camctl.toml file
const DefaultConfigPath = "./camctl.toml"

// MetricsNamespace is the prometheus namespace for all camctl metrics
const MetricsNamespace = "camctl"
