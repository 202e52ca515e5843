package ports

import "github.com/bft-labs/dcf77rx/pkg/log"

// Logger is the logging port used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field
