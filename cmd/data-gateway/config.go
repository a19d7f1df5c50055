package main

import (
	"io"

	datagateway "github.com/diwise/data-gateway/internal/pkg/application/data-gateway"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	listenAddress FlagType = iota
	servicePort

	configPath
	opaPath

	logFormat
)

type AppConfig struct {
	gatewayConfig io.Reader
	opaConfig     io.Reader
	secrets       datagateway.Secrets
}
