package service

import (
	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/go-life-tracker/internal/adapter"
	"github.com/MKhiriev/go-life-tracker/internal/crypto"
	"github.com/MKhiriev/go-life-tracker/internal/store"
	"github.com/MKhiriev/go-life-tracker/internal/validators"
)

type Services struct {
	Serializer DataSerializer
	Validator  DataValidator
	Comparator DataComparator
	Resolver   ConflictResolver
	Merger     DataMerger
	Integrity  DataIntegrityChecker
	Engine     SyncEngine
	Job        SyncJob
}

// NewServices wires the full synchronization stack. A sealer together
// with a non-empty key turns on blob sealing; stateLock may be nil to
// disable cross-process exclusion.
func NewServices(
	repo store.EntityRepository,
	stateStore store.SyncStateStore,
	transport adapter.RemoteTransport,
	sealer crypto.BlobSealer,
	sealKey []byte,
	settings EngineSettings,
	clock clockwork.Clock,
	stateLock *flock.Flock,
) *Services {
	serializer := NewDataSerializer(settings.Strategy.Compress, sealer, sealKey)
	validator := NewDataValidator(validators.NewEntityValidator())
	comparator := NewDataComparator(settings.Parallelism)
	merger := NewDataMerger()
	resolver := NewConflictResolver(merger, settings.Strategy.Merge)
	integrity := NewDataIntegrityChecker()

	engine := NewSyncEngine(EngineDeps{
		Repo:       repo,
		StateStore: stateStore,
		Transport:  transport,
		Serializer: serializer,
		Validator:  validator,
		Comparator: comparator,
		Resolver:   resolver,
		Merger:     merger,
		Integrity:  integrity,
	}, settings, clock, stateLock)

	return &Services{
		Serializer: serializer,
		Validator:  validator,
		Comparator: comparator,
		Resolver:   resolver,
		Merger:     merger,
		Integrity:  integrity,
		Engine:     engine,
		Job:        NewSyncJob(engine, clock),
	}
}
