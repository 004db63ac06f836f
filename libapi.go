package analyticsbase

import (
	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/dispatch"
	runtimepkg "github.com/drblury/analyticsbase/internal/runtime"
	configpkg "github.com/drblury/analyticsbase/internal/runtime/config"
	errspkg "github.com/drblury/analyticsbase/internal/runtime/errors"
	idspkg "github.com/drblury/analyticsbase/internal/runtime/ids"
	"github.com/drblury/analyticsbase/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	metadatapkg "github.com/drblury/analyticsbase/internal/runtime/metadata"
	transportpkg "github.com/drblury/analyticsbase/internal/runtime/transport"
	"github.com/drblury/analyticsbase/internal/storage"
	"github.com/drblury/analyticsbase/internal/storage/memory"
	"github.com/drblury/analyticsbase/internal/storage/sqlite"
	"github.com/drblury/analyticsbase/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Store               = runtimepkg.Store
	Metrics             = runtimepkg.Metrics
	TransportFactory    = transportpkg.Factory

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	Message        = analytics.Message
	Metadata       = analytics.Metadata
	Payload        = analytics.Payload
	MessageKind    = analytics.MessageKind
	PageChange     = analytics.PageChange
	PlaybackChange = analytics.PlaybackChange
	SongChange     = analytics.SongChange
	PageID         = analytics.PageID
	PlaybackSource = analytics.PlaybackSource
	Envelope       = analytics.Envelope
	DecodeError    = analytics.DecodeError

	Dispatcher      = dispatch.Dispatcher
	DispatchEvent   = dispatch.Event
	DispatchHooks   = dispatch.Hooks
	ProcessingError = dispatch.ProcessingError

	AnalyticsStore = storage.AnalyticsStore
	RecordReader   = storage.RecordReader
	Record         = storage.Record
	StoreError     = storage.StoreError
	SQLiteOptions  = sqlite.Options

	MessageHeaders = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	UnprocessableEventError = runtimepkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError
	ErrorResponse           = runtimepkg.ErrorResponse

	Transport             = transport.Transport
	TransportBuilder      = transport.Builder
	TransportConfig       = transport.Config
	TransportRegistry     = transport.Registry
	TransportCapabilities = transport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	LoadConfig     = configpkg.Load
	OpenStore      = runtimepkg.OpenStore
	OpenSQLite     = sqlite.Open
	NewMemoryStore = memory.New

	NewDispatcher      = dispatch.New
	WithDispatchHooks  = dispatch.WithHooks
	WithTracerProvider = dispatch.WithTracerProvider
	LoggingHooks       = dispatch.LoggingHooks
	IsDecodeError      = dispatch.IsDecodeError
	IsStoreError       = dispatch.IsStoreError
	IsConflict         = storage.IsConflict
	IsUnavailable      = storage.IsUnavailable
	IsUnprocessable    = runtimepkg.IsUnprocessable
	Outcome            = runtimepkg.Outcome

	NewMessage          = analytics.NewMessage
	Encode              = analytics.Encode
	Decode              = analytics.Decode
	DecodeMessage       = analytics.DecodeMessage
	BuildMetadata       = analytics.BuildMetadata
	ParsePageID         = analytics.ParsePageID
	ParsePlaybackSource = analytics.ParsePlaybackSource

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	PublishEnvelope    = runtimepkg.PublishEnvelope
	NewEnvelopeMessage = runtimepkg.NewEnvelopeMessage

	DefaultTransportFactory  = transportpkg.DefaultFactory
	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build
	GetCapabilities          = transport.GetCapabilities

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	CreateULID           = idspkg.CreateULID
	RequestIDFromContext = runtimepkg.RequestIDFromContext

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrStoreRequired     = errspkg.ErrStoreRequired
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrEnvelopeRequired  = errspkg.ErrEnvelopeRequired
	ErrBrokerDisabled    = errspkg.ErrBrokerDisabled
	ErrAlreadyStarted    = errspkg.ErrAlreadyStarted

	ErrAlreadyExists = storage.ErrAlreadyExists
	ErrNotFound      = storage.ErrNotFound
	ErrUnavailable   = storage.ErrUnavailable

	ErrTruncated        = analytics.ErrTruncated
	ErrMalformed        = analytics.ErrMalformed
	ErrMissingField     = analytics.ErrMissingField
	ErrUnknownKind      = analytics.ErrUnknownKind
	ErrUnknownEnumValue = analytics.ErrUnknownEnumValue
	ErrPayloadConflict  = analytics.ErrPayloadConflict
	ErrPayloadMismatch  = analytics.ErrPayloadMismatch
)

// Message kinds.
const (
	KindPageChange     = analytics.KindPageChange
	KindPlaybackChange = analytics.KindPlaybackChange
	KindSongChange     = analytics.KindSongChange
)

// Pages.
const (
	PageHome      = analytics.PageHome
	PageRadio     = analytics.PageRadio
	PageSettings  = analytics.PageSettings
	PageSpotify   = analytics.PageSpotify
	PageBluetooth = analytics.PageBluetooth
)

// Playback sources.
const (
	SourceRadio     = analytics.SourceRadio
	SourceSpotify   = analytics.SourceSpotify
	SourceBluetooth = analytics.SourceBluetooth
)

// Message header keys set on published envelopes.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyKind          = metadatapkg.KeyKind
	MetadataKeyOrigin        = metadatapkg.KeyOrigin
	MetadataKeyTimestamp     = metadatapkg.KeyTimestamp
)
