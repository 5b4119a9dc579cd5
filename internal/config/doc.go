// Package config provides configuration loading and validation for the IELTS tutor service.
// It handles YAML-based configuration with struct validation covering the HTTP API,
// the speech-to-text and synthesis engines, and the language model runner.
package config
