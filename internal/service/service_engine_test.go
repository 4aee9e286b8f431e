package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-life-tracker/internal/adapter"
	"github.com/MKhiriev/go-life-tracker/internal/mock"
	"github.com/MKhiriev/go-life-tracker/internal/validators"
	"github.com/MKhiriev/go-life-tracker/models"
)

// engineHarness собирает движок на настоящих подсервисах и мок-хранилищах.
// Все ожидания вешаются на моки прямо в тестах: неожиданный вызов
// транспорта или репозитория валит тест сам по себе.
type engineHarness struct {
	repo      *mock.MockEntityRepository
	state     *mock.MockSyncStateStore
	transport *mock.MockRemoteTransport
	clock     *clockwork.FakeClock
	ser       DataSerializer

	deps     EngineDeps
	settings EngineSettings
	engine   SyncEngine
}

func newEngineHarness(t *testing.T, strategy models.SyncStrategy) *engineHarness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &engineHarness{
		repo:      mock.NewMockEntityRepository(ctrl),
		state:     mock.NewMockSyncStateStore(ctrl),
		transport: mock.NewMockRemoteTransport(ctrl),
		clock:     clockwork.NewFakeClockAt(ts(60)),
		ser:       NewDataSerializer(false, nil, nil),
	}

	merger := NewDataMerger()
	h.deps = EngineDeps{
		Repo:       h.repo,
		StateStore: h.state,
		Transport:  h.transport,
		Serializer: h.ser,
		Validator:  NewDataValidator(validators.NewEntityValidator()),
		Comparator: NewDataComparator(4),
		Resolver:   NewConflictResolver(merger, strategy.Merge),
		Merger:     merger,
		Integrity:  NewDataIntegrityChecker(),
	}
	h.settings = EngineSettings{
		Strategy:       strategy,
		RetryAttempts:  2,
		RetryBaseDelay: time.Millisecond,
		Parallelism:    4,
	}
	h.engine = NewSyncEngine(h.deps, h.settings, h.clock, nil)

	return h
}

// blob кодирует сущность так, как её выгрузил бы другой экземпляр
// приложения.
func (h *engineHarness) blob(t *testing.T, e models.Entity) []byte {
	t.Helper()

	raw, err := h.ser.MarshalEntity(e)
	require.NoError(t, err)
	enc, err := h.ser.EncodeBlob(raw)
	require.NoError(t, err)

	return enc
}

// meta строит листинговую запись для артефакта сущности.
func (h *engineHarness) meta(t *testing.T, e models.Entity, withHash bool) models.SyncMetadata {
	t.Helper()

	m := models.SyncMetadata{
		Path:     models.RemotePath(e.Kind(), e.EntityID()),
		Size:     int64(len(h.blob(t, e))),
		Modified: e.State().Modified,
	}
	if withHash {
		m.Hash = mustHash(t, e)
	}

	return m
}

func baseState(lastSync time.Time, cycles int64, index map[string]models.SyncMetadata) models.SyncState {
	return models.SyncState{
		DeviceID:     uid(900),
		LastSyncTime: &lastSync,
		CycleCount:   cycles,
		RemoteIndex:  index,
	}
}

func fullStrategy(policy models.ConflictPolicy) models.SyncStrategy {
	return models.SyncStrategy{Type: models.StrategyFull, ConflictPolicy: policy}
}

func incStrategy(policy models.ConflictPolicy) models.SyncStrategy {
	return models.SyncStrategy{Type: models.StrategyIncremental, ConflictPolicy: policy}
}

// Первый цикл устройства: пустое состояние, пустой сервер, одна свежая
// запись. Она уходит наверх, происхождение переключается после выгрузки,
// базис сохраняется один раз.
func TestSyncEngine_FirstCyclePushesLocalData(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	task := newTask(uid(1), "plan the week", ts(20))
	taskHash := mustHash(t, task)
	taskPath := models.RemotePath(models.KindTask, uid(1))

	var local models.Collections
	local.Put(task)

	h.state.EXPECT().Load(gomock.Any()).Return(models.SyncState{}, nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(local, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return(nil, nil)

	putMeta := models.SyncMetadata{Path: taskPath, Size: 321, Modified: ts(60), Hash: taskHash}
	h.transport.EXPECT().
		Put(gomock.Any(), taskPath, gomock.Any(), taskHash).
		DoAndReturn(func(_ context.Context, _ string, blob []byte, _ string) (models.SyncMetadata, error) {
			raw, err := h.ser.DecodeBlob(blob)
			require.NoError(t, err)
			got, err := h.ser.UnmarshalEntity(raw)
			require.NoError(t, err)
			assert.Equal(t, "plan the week", got.(models.Task).Title)
			return putMeta, nil
		})
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)

	// Единственная локальная запись - переключение происхождения после
	// успешной выгрузки.
	h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			assert.Equal(t, models.OriginBasedOnRemote, cols.Tasks[0].Origin)
			assert.Equal(t, taskHash, cols.Tasks[0].Hash)
			return nil
		})

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			assert.NotEmpty(t, st.DeviceID)
			assert.EqualValues(t, 1, st.CycleCount)
			require.NotNil(t, st.LastSyncTime)
			require.Len(t, st.RemoteIndex, 1)
			assert.Equal(t, putMeta, st.RemoteIndex[taskPath])
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, models.StageDone, res.Stage)
	assert.Zero(t, res.Applied)
	assert.Zero(t, res.Merged)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.Counts.Tasks)
}

// Повторный цикл без изменений с обеих сторон не трогает ни транспорт
// (кроме листинга), ни репозиторий: ноль выгрузок, ноль записей, только
// новый базис.
func TestSyncEngine_IdleCycleTouchesNothing(t *testing.T) {
	h := newEngineHarness(t, incStrategy(models.PolicyUseLocal))

	task := newTask(uid(1), "plan the week", ts(20))
	task.Origin = models.OriginBasedOnRemote
	taskHash := mustHash(t, task)

	var local models.Collections
	local.Put(task)

	// Листинг хеша не знает, зеркало прошлого цикла знает.
	listMeta := h.meta(t, task, false)
	mirror := listMeta
	mirror.Hash = taskHash

	lastSync := ts(30)
	h.state.EXPECT().
		Load(gomock.Any()).
		Return(baseState(lastSync, 1, map[string]models.SyncMetadata{mirror.Path: mirror}), nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(local, nil)
	h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(models.Collections{}, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{listMeta}, nil)

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			assert.EqualValues(t, 2, st.CycleCount)
			// Хеш из зеркала не теряется между циклами.
			assert.Equal(t, taskHash, st.RemoteIndex[mirror.Path].Hash)
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Zero(t, res.Applied)
	assert.Zero(t, res.Merged)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.Counts.Tasks)
}

// Локальная правка при неизменном сервере выгружается без записи в
// локальное хранилище.
func TestSyncEngine_LocalEditPushes(t *testing.T) {
	h := newEngineHarness(t, incStrategy(models.PolicyUseLocal))

	before := newTask(uid(1), "old wording", ts(5))
	before.Origin = models.OriginBasedOnRemote

	edited := before
	edited.Title = "new wording"
	edited.UpdatedAt = ts(20)
	editedHash := mustHash(t, edited)

	var local models.Collections
	local.Put(edited)
	var changed models.Collections
	changed.Put(edited)

	remoteMeta := h.meta(t, before, true)
	lastSync := ts(12)

	h.state.EXPECT().
		Load(gomock.Any()).
		Return(baseState(lastSync, 5, map[string]models.SyncMetadata{remoteMeta.Path: remoteMeta}), nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(local, nil)
	h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(changed, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{remoteMeta}, nil)

	putMeta := models.SyncMetadata{Path: remoteMeta.Path, Size: 333, Modified: ts(60), Hash: editedHash}
	h.transport.EXPECT().
		Put(gomock.Any(), remoteMeta.Path, gomock.Any(), editedHash).
		DoAndReturn(func(_ context.Context, _ string, blob []byte, _ string) (models.SyncMetadata, error) {
			raw, err := h.ser.DecodeBlob(blob)
			require.NoError(t, err)
			got, err := h.ser.UnmarshalEntity(raw)
			require.NoError(t, err)
			assert.Equal(t, "new wording", got.(models.Task).Title)
			return putMeta, nil
		})
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			assert.Equal(t, putMeta, st.RemoteIndex[remoteMeta.Path])
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Zero(t, res.Applied)
	assert.Zero(t, res.Skipped)
}

// Удалённая правка при неизменной локальной копии втягивается и
// фиксируется как полученная с сервера.
func TestSyncEngine_PullsRemoteEdit(t *testing.T) {
	h := newEngineHarness(t, incStrategy(models.PolicyUseLocal))

	local := newTask(uid(1), "old title", ts(10))
	local.Origin = models.OriginBasedOnRemote

	remote := newTask(uid(1), "new title", ts(15))
	remote.Origin = models.OriginBasedOnRemote
	remoteHash := mustHash(t, remote)

	var localCols models.Collections
	localCols.Put(local)

	// Зеркало помнит старый артефакт, листинг показывает новый без хеша:
	// движку придётся скачать блоб и пересчитать хеш самому.
	staleMeta := h.meta(t, local, true)
	freshMeta := h.meta(t, remote, false)

	lastSync := ts(12)
	h.state.EXPECT().
		Load(gomock.Any()).
		Return(baseState(lastSync, 3, map[string]models.SyncMetadata{staleMeta.Path: staleMeta}), nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(localCols, nil)
	h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(models.Collections{}, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{freshMeta}, nil)
	h.transport.EXPECT().Get(gomock.Any(), freshMeta.Path).Return(h.blob(t, remote), nil)

	h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			got := cols.Tasks[0]
			assert.Equal(t, "new title", got.Title)
			assert.Equal(t, models.OriginBasedOnRemote, got.Origin)
			assert.Equal(t, remoteHash, got.Hash)
			return nil
		})
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			// Хеш, выученный при скачивании, попадает в новое зеркало.
			assert.Equal(t, remoteHash, st.RemoteIndex[freshMeta.Path].Hash)
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.Merged)
}

// Обе стороны правили одну запись после базиса. Исход зависит только от
// настроенной политики.
func TestSyncEngine_ConflictPolicies(t *testing.T) {
	lastSync := ts(12)

	// build готовит конфликт: локальная правка t+20, удалённая t+15,
	// базис t+12.
	build := func(t *testing.T, policy models.ConflictPolicy) (*engineHarness, models.SyncMetadata) {
		h := newEngineHarness(t, incStrategy(policy))

		local := newTask(uid(1), "edited on this device", ts(20))
		local.Origin = models.OriginBasedOnRemote

		remote := newTask(uid(1), "edited elsewhere", ts(15))
		remote.Origin = models.OriginBasedOnRemote
		remote.Notes = "pinned note"

		var cols models.Collections
		cols.Put(local)
		var changed models.Collections
		changed.Put(local)

		listMeta := h.meta(t, remote, true)

		h.state.EXPECT().Load(gomock.Any()).Return(baseState(lastSync, 2, nil), nil)
		h.repo.EXPECT().LoadAll(gomock.Any()).Return(cols, nil)
		h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(changed, nil)
		h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{listMeta}, nil)
		h.transport.EXPECT().Get(gomock.Any(), listMeta.Path).Return(h.blob(t, remote), nil)

		return h, listMeta
	}

	t.Run("use local pushes our copy", func(t *testing.T) {
		h, listMeta := build(t, models.PolicyUseLocal)

		h.transport.EXPECT().
			Put(gomock.Any(), listMeta.Path, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, blob []byte, _ string) (models.SyncMetadata, error) {
				raw, err := h.ser.DecodeBlob(blob)
				require.NoError(t, err)
				got, err := h.ser.UnmarshalEntity(raw)
				require.NoError(t, err)
				assert.Equal(t, "edited on this device", got.(models.Task).Title)
				return models.SyncMetadata{Path: listMeta.Path}, nil
			})
		h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)
		h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		res, err := h.engine.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.CycleCompleted, res.Status)
		assert.Zero(t, res.Applied)
		assert.Zero(t, res.Merged)
		assert.Zero(t, res.Skipped)
	})

	t.Run("use remote overwrites our copy", func(t *testing.T) {
		h, _ := build(t, models.PolicyUseRemote)

		h.repo.EXPECT().
			Commit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cols models.Collections) error {
				require.Len(t, cols.Tasks, 1)
				assert.Equal(t, "edited elsewhere", cols.Tasks[0].Title)
				assert.Equal(t, models.OriginBasedOnRemote, cols.Tasks[0].Origin)
				return nil
			})
		h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)
		h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		res, err := h.engine.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.CycleCompleted, res.Status)
		assert.Equal(t, 1, res.Applied)
	})

	t.Run("merge keeps local fields and backfills the rest", func(t *testing.T) {
		h, listMeta := build(t, models.PolicyMerge)

		h.repo.EXPECT().
			Commit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cols models.Collections) error {
				require.Len(t, cols.Tasks, 1)
				got := cols.Tasks[0]
				assert.Equal(t, "edited on this device", got.Title)
				require.NotNil(t, got.Notes)
				assert.Equal(t, "pinned note", got.Notes)
				assert.True(t, got.UpdatedAt.Equal(ts(60).UTC()))
				return nil
			})
		h.transport.EXPECT().Put(gomock.Any(), listMeta.Path, gomock.Any(), gomock.Any()).Return(models.SyncMetadata{Path: listMeta.Path}, nil)
		h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)
		h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		res, err := h.engine.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.CycleCompleted, res.Status)
		assert.Equal(t, 1, res.Applied)
		assert.Equal(t, 1, res.Merged)
	})

	t.Run("skip leaves both sides untouched", func(t *testing.T) {
		h, _ := build(t, models.PolicySkip)

		h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		res, err := h.engine.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.CycleCompleted, res.Status)
		assert.Zero(t, res.Applied)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("manual suspends the cycle without commits", func(t *testing.T) {
		h, _ := build(t, models.PolicyManual)

		res, err := h.engine.RunCycle(context.Background())
		require.NoError(t, err)

		assert.Equal(t, models.CyclePendingManual, res.Status)
		assert.Equal(t, models.StagePendingManual, res.Stage)
		assert.Equal(t, []string{uid(1)}, res.Conflicts)
		assert.Nil(t, res.Err)
	})
}

// Независимо созданная на двух устройствах запись с одним id не считается
// конфликтом: копии сливаются и результат сходится на обеих сторонах.
func TestSyncEngine_MergesIndependentCreation(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	local := newTask(uid(1), "shared shopping list", ts(20))

	remote := newTask(uid(1), "shopping list", ts(15))
	remote.Notes = "milk, bread"

	var cols models.Collections
	cols.Put(local)

	listMeta := h.meta(t, remote, true)

	h.state.EXPECT().Load(gomock.Any()).Return(models.SyncState{}, nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(cols, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{listMeta}, nil)
	h.transport.EXPECT().Get(gomock.Any(), listMeta.Path).Return(h.blob(t, remote), nil)

	first := h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			got := cols.Tasks[0]
			assert.Equal(t, "shared shopping list", got.Title)
			require.NotNil(t, got.Notes)
			assert.Equal(t, "milk, bread", got.Notes)
			assert.Equal(t, models.OriginFresh, got.Origin)
			return nil
		})
	second := h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			assert.Equal(t, models.OriginBasedOnRemote, cols.Tasks[0].Origin)
			return nil
		})
	gomock.InOrder(first, second)

	h.transport.EXPECT().
		Put(gomock.Any(), listMeta.Path, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, blob []byte, _ string) (models.SyncMetadata, error) {
			raw, err := h.ser.DecodeBlob(blob)
			require.NoError(t, err)
			got, err := h.ser.UnmarshalEntity(raw)
			require.NoError(t, err)
			assert.Equal(t, "shared shopping list", got.(models.Task).Title)
			return models.SyncMetadata{Path: listMeta.Path}, nil
		})
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)
	h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Merged)
}

// Запись, чей артефакт не влезает в лимит, пропускается без ошибки;
// остальные выгружаются как обычно.
func TestSyncEngine_OversizeEntitySkipped(t *testing.T) {
	strategy := fullStrategy(models.PolicyUseLocal)
	strategy.MaxFileSize = 1024
	h := newEngineHarness(t, strategy)

	small := newTask(uid(1), "small", ts(20))
	huge := newTask(uid(2), "huge attachment", ts(20))
	huge.Notes = strings.Repeat("x", 8192)

	var cols models.Collections
	cols.Put(small)
	cols.Put(huge)

	smallPath := models.RemotePath(models.KindTask, uid(1))

	h.state.EXPECT().Load(gomock.Any()).Return(models.SyncState{}, nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(cols, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return(nil, nil)

	// Снапшот включает негабаритную запись и тоже не влезает в лимит,
	// поэтому единственная выгрузка за цикл - маленькая задача.
	h.transport.EXPECT().
		Put(gomock.Any(), smallPath, gomock.Any(), gomock.Any()).
		Return(models.SyncMetadata{Path: smallPath}, nil)

	h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			assert.Equal(t, uid(1), cols.Tasks[0].ID)
			assert.Equal(t, models.OriginBasedOnRemote, cols.Tasks[0].Origin)
			return nil
		})

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			require.Len(t, st.RemoteIndex, 1)
			assert.Contains(t, st.RemoteIndex, smallPath)
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 2, res.Counts.Tasks)
}

// Исчезновение ранее синхронизированного артефакта читается как удаление
// на другом устройстве и опускается вниз надгробием.
func TestSyncEngine_RemoteAbsenceTombstonesLocal(t *testing.T) {
	h := newEngineHarness(t, incStrategy(models.PolicyUseLocal))

	task := newTask(uid(1), "retired", ts(5))
	task.Origin = models.OriginBasedOnRemote

	var cols models.Collections
	cols.Put(task)

	mirrorMeta := h.meta(t, task, true)
	lastSync := ts(12)

	h.state.EXPECT().
		Load(gomock.Any()).
		Return(baseState(lastSync, 4, map[string]models.SyncMetadata{mirrorMeta.Path: mirrorMeta}), nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(cols, nil)
	h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(models.Collections{}, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return(nil, nil)

	h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cols models.Collections) error {
			require.Len(t, cols.Tasks, 1)
			got := cols.Tasks[0]
			assert.True(t, got.Deleted)
			assert.True(t, got.UpdatedAt.Equal(ts(60).UTC()))
			return nil
		})
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			assert.Empty(t, st.RemoteIndex)
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, 1, res.Applied)
}

// Дедупликация схлопывает одинаковые по содержимому записи во всём
// датасете: проигравшая получает надгробие, её артефакт удаляется с
// сервера, ссылки переводятся на выжившую.
func TestSyncEngine_DeduplicateCollapsesAcrossDataset(t *testing.T) {
	strategy := incStrategy(models.PolicyUseLocal)
	strategy.Merge = models.MergeConfig{Deduplicate: true}
	h := newEngineHarness(t, strategy)

	groceries := newCategory(uid(1), "groceries", ts(5))
	groceries.Origin = models.OriginBasedOnRemote
	doubled := newCategory(uid(2), "groceries", ts(6))
	doubled.Origin = models.OriginBasedOnRemote

	task := newTask(uid(3), "buy milk", ts(20))
	task.CategoryID = strPtr(uid(2))

	var cols models.Collections
	cols.Put(groceries)
	cols.Put(doubled)
	cols.Put(task)
	var changed models.Collections
	changed.Put(task)

	m1 := h.meta(t, groceries, true)
	m2 := h.meta(t, doubled, true)
	taskPath := models.RemotePath(models.KindTask, uid(3))

	lastSync := ts(12)
	h.state.EXPECT().
		Load(gomock.Any()).
		Return(baseState(lastSync, 7, map[string]models.SyncMetadata{m1.Path: m1, m2.Path: m2}), nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(cols, nil)
	h.repo.EXPECT().LoadChangedSince(gomock.Any(), lastSync).Return(changed, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return([]models.SyncMetadata{m1, m2}, nil)

	first := h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch models.Collections) error {
			require.Len(t, batch.Categories, 1)
			assert.Equal(t, uid(2), batch.Categories[0].ID)
			assert.True(t, batch.Categories[0].Deleted)

			require.Len(t, batch.Tasks, 1)
			require.NotNil(t, batch.Tasks[0].CategoryID)
			assert.Equal(t, uid(1), *batch.Tasks[0].CategoryID)
			return nil
		})
	second := h.repo.EXPECT().
		Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch models.Collections) error {
			require.Len(t, batch.Tasks, 1)
			assert.Equal(t, models.OriginBasedOnRemote, batch.Tasks[0].Origin)
			return nil
		})
	gomock.InOrder(first, second)

	h.transport.EXPECT().
		Put(gomock.Any(), taskPath, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, blob []byte, _ string) (models.SyncMetadata, error) {
			raw, err := h.ser.DecodeBlob(blob)
			require.NoError(t, err)
			got, err := h.ser.UnmarshalEntity(raw)
			require.NoError(t, err)
			require.NotNil(t, got.(models.Task).CategoryID)
			assert.Equal(t, uid(1), *got.(models.Task).CategoryID)
			return models.SyncMetadata{Path: taskPath}, nil
		})
	h.transport.EXPECT().Delete(gomock.Any(), m2.Path).Return(nil)
	h.transport.EXPECT().Put(gomock.Any(), snapshotPath, gomock.Any(), "").Return(models.SyncMetadata{}, nil)

	h.state.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st models.SyncState) error {
			assert.Contains(t, st.RemoteIndex, m1.Path)
			assert.Contains(t, st.RemoteIndex, taskPath)
			assert.NotContains(t, st.RemoteIndex, m2.Path)
			return nil
		})

	res, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleCompleted, res.Status)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 2, res.Counts.Categories)
}

// Временные сбои транспорта повторяются ограниченное число раз, затем
// цикл падает с транспортным классом ошибки.
func TestSyncEngine_TransientFailureRetriesThenFails(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	h.state.EXPECT().Load(gomock.Any()).Return(models.SyncState{}, nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(models.Collections{}, nil)

	// 1 попытка + 2 повтора из настроек.
	h.transport.EXPECT().
		ListMetadata(gomock.Any()).
		Return(nil, fmt.Errorf("%w: storage answered 503", adapter.ErrTransient)).
		Times(3)

	res, err := h.engine.RunCycle(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, adapter.ErrTransient)
	assert.Equal(t, models.CycleFailed, res.Status)
	assert.Equal(t, models.StageFetchingRemote, res.Stage)
	assert.ErrorIs(t, res.Err, ErrTransport)
}

// Постоянный отказ не повторяется вовсе.
func TestSyncEngine_PermanentFailureDoesNotRetry(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	h.state.EXPECT().Load(gomock.Any()).Return(models.SyncState{}, nil)
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(models.Collections{}, nil)
	h.transport.EXPECT().
		ListMetadata(gomock.Any()).
		Return(nil, fmt.Errorf("%w: credentials rejected", adapter.ErrPermanent))

	res, err := h.engine.RunCycle(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, adapter.ErrPermanent)
	assert.Equal(t, models.CycleFailed, res.Status)
}

// Отмена, пришедшая во время стадии, срабатывает на следующей границе:
// начатая стадия дорабатывает, следующая не стартует.
func TestSyncEngine_CancelStopsAtStageBoundary(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	ctx, cancel := context.WithCancel(context.Background())
	h.state.EXPECT().
		Load(gomock.Any()).
		DoAndReturn(func(context.Context) (models.SyncState, error) {
			cancel()
			return models.SyncState{}, nil
		})

	res, err := h.engine.RunCycle(ctx)
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.CycleFailed, res.Status)
	assert.Equal(t, models.StageFetchingRemote, res.Stage)
}

// Второй одновременный запуск на том же движке отклоняется сразу, без
// очереди.
func TestSyncEngine_RejectsSecondCycleInFlight(t *testing.T) {
	h := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	started := make(chan struct{})
	release := make(chan struct{})

	h.state.EXPECT().
		Load(gomock.Any()).
		DoAndReturn(func(context.Context) (models.SyncState, error) {
			close(started)
			<-release
			return models.SyncState{}, nil
		})
	h.repo.EXPECT().LoadAll(gomock.Any()).Return(models.Collections{}, nil)
	h.transport.EXPECT().ListMetadata(gomock.Any()).Return(nil, nil)
	h.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	var (
		wg       sync.WaitGroup
		firstRes models.CycleResult
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstRes, firstErr = h.engine.RunCycle(context.Background())
	}()

	<-started
	_, err := h.engine.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, models.CycleCompleted, firstRes.Status)
}

// Файловая блокировка состояния не пускает в цикл второй движок,
// работающий с тем же профилем.
func TestSyncEngine_StateLockExcludesSecondEngine(t *testing.T) {
	h1 := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))
	h2 := newEngineHarness(t, fullStrategy(models.PolicyUseLocal))

	lockPath := filepath.Join(t.TempDir(), "sync.lock")
	e1 := NewSyncEngine(h1.deps, h1.settings, h1.clock, flock.New(lockPath))
	e2 := NewSyncEngine(h2.deps, h2.settings, h2.clock, flock.New(lockPath))

	started := make(chan struct{})
	release := make(chan struct{})

	h1.state.EXPECT().
		Load(gomock.Any()).
		DoAndReturn(func(context.Context) (models.SyncState, error) {
			close(started)
			<-release
			return models.SyncState{}, nil
		})
	h1.repo.EXPECT().LoadAll(gomock.Any()).Return(models.Collections{}, nil)
	h1.transport.EXPECT().ListMetadata(gomock.Any()).Return(nil, nil)
	h1.state.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e1.RunCycle(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	// У второго движка нет ни одного ожидания на моках: до стадий он
	// дойти не должен.
	_, err := e2.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)

	close(release)
	wg.Wait()
}
