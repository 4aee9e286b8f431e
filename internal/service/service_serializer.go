// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/MKhiriev/go-life-tracker/internal/crypto"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
)

// Blob envelope layout: a fixed 4-byte header in front of the payload.
//
//	[0] 'L'  magic
//	[1] 'T'  magic
//	[2]      layer flags
//	[3]      reserved, written as zero, ignored on read
//
// Layers apply in a fixed order: compress first, then seal. The header
// itself is never compressed or sealed so a reader can always tell what
// the payload is wrapped in.
const (
	blobMagic0 = byte('L')
	blobMagic1 = byte('T')

	blobHeaderLen = 4

	blobFlagSnappy byte = 1 << 0
	blobFlagSealed byte = 1 << 1
)

// entityEnvelope is the self-describing wire form of a single entity.
// Kind rides next to the data so a reader can pick the concrete type
// without out-of-band knowledge.
type entityEnvelope struct {
	Version int               `json:"version"`
	Kind    models.EntityKind `json:"kind"`
	Data    json.RawMessage   `json:"data"`
}

type dataSerializer struct {
	compress bool
	sealer   crypto.BlobSealer
	sealKey  []byte
}

// NewDataSerializer builds the serializer. Compression is applied to
// outgoing blobs when compress is set; sealing is applied when both a
// sealer and a derived key are present. Incoming blobs are decoded by
// their own header flags, so these settings only shape what this device
// writes.
func NewDataSerializer(compress bool, sealer crypto.BlobSealer, sealKey []byte) DataSerializer {
	return &dataSerializer{
		compress: compress,
		sealer:   sealer,
		sealKey:  sealKey,
	}
}

// MarshalSnapshot encodes the snapshot with collections sorted by id.
// Sorting happens on a copy of the slices, the caller's data stays
// untouched.
func (s *dataSerializer) MarshalSnapshot(snap models.Snapshot) ([]byte, error) {
	snap.Data = cloneCollections(snap.Data)
	snap.Data.SortByID()

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal snapshot: %w", ErrSerialization, err)
	}

	return raw, nil
}

// UnmarshalSnapshot decodes a snapshot and rejects blobs written by a
// newer schema than this build reads.
func (s *dataSerializer) UnmarshalSnapshot(raw []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w: decode snapshot: %w", ErrSerialization, ErrMalformedBlob, err)
	}

	if err := checkSchemaVersion(snap.Version); err != nil {
		return models.Snapshot{}, err
	}

	return snap, nil
}

// MarshalEntity encodes one entity into its enveloped wire form.
func (s *dataSerializer) MarshalEntity(e models.Entity) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s %s: %w", ErrSerialization, e.Kind(), e.EntityID(), err)
	}

	raw, err := json.Marshal(entityEnvelope{
		Version: models.SchemaVersion,
		Kind:    e.Kind(),
		Data:    data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s %s envelope: %w", ErrSerialization, e.Kind(), e.EntityID(), err)
	}

	return raw, nil
}

// UnmarshalEntity decodes an enveloped entity blob, dispatching on the
// kind recorded in the envelope.
func (s *dataSerializer) UnmarshalEntity(raw []byte) (models.Entity, error) {
	var env entityEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w: decode entity envelope: %w", ErrSerialization, ErrMalformedBlob, err)
	}

	if err := checkSchemaVersion(env.Version); err != nil {
		return nil, err
	}

	var (
		e   models.Entity
		err error
	)
	switch env.Kind {
	case models.KindTask:
		var v models.Task
		err = json.Unmarshal(env.Data, &v)
		e = v
	case models.KindCategory:
		var v models.Category
		err = json.Unmarshal(env.Data, &v)
		e = v
	case models.KindTimeEntry:
		var v models.TimeEntry
		err = json.Unmarshal(env.Data, &v)
		e = v
	case models.KindAccount:
		var v models.Account
		err = json.Unmarshal(env.Data, &v)
		e = v
	case models.KindTransaction:
		var v models.Transaction
		err = json.Unmarshal(env.Data, &v)
		e = v
	default:
		return nil, fmt.Errorf("%w: %w: unknown entity kind %d", ErrSerialization, ErrMalformedBlob, int(env.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w: decode %s: %w", ErrSerialization, ErrMalformedBlob, env.Kind, err)
	}

	return e, nil
}

// HashEntity hashes the entity's semantic payload. The envelope and the
// blob layers never participate, so the hash is stable across devices
// with different compression or sealing settings.
func (s *dataSerializer) HashEntity(e models.Entity) (string, error) {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return "", fmt.Errorf("%w: hash %s %s: %w", ErrSerialization, e.Kind(), e.EntityID(), err)
	}

	return utils.HashHex(payload), nil
}

// EncodeBlob wraps marshaled bytes for transport, applying the layers
// this serializer is configured with and recording them in the header.
func (s *dataSerializer) EncodeBlob(raw []byte) ([]byte, error) {
	var flags byte
	body := raw

	if s.compress {
		body = snappy.Encode(nil, body)
		flags |= blobFlagSnappy
	}

	if s.sealingEnabled() {
		sealed, err := s.sealer.Seal(body, s.sealKey)
		if err != nil {
			return nil, fmt.Errorf("%w: seal blob: %w", ErrSerialization, err)
		}
		body = sealed
		flags |= blobFlagSealed
	}

	out := make([]byte, 0, blobHeaderLen+len(body))
	out = append(out, blobMagic0, blobMagic1, flags, 0)

	return append(out, body...), nil
}

// DecodeBlob unwraps a transport blob by its header flags. A sealed
// blob without a configured key is unreadable and fails; every other
// malformation is reported as ErrMalformedBlob.
func (s *dataSerializer) DecodeBlob(blob []byte) ([]byte, error) {
	if len(blob) < blobHeaderLen {
		return nil, fmt.Errorf("%w: %w: blob shorter than header", ErrSerialization, ErrMalformedBlob)
	}
	if blob[0] != blobMagic0 || blob[1] != blobMagic1 {
		return nil, fmt.Errorf("%w: %w: bad blob magic %q", ErrSerialization, ErrMalformedBlob, string(blob[:2]))
	}

	flags := blob[2]
	if flags&^(blobFlagSnappy|blobFlagSealed) != 0 {
		return nil, fmt.Errorf("%w: %w: unknown blob flags %#x", ErrSerialization, ErrMalformedBlob, flags)
	}

	body := blob[blobHeaderLen:]

	if flags&blobFlagSealed != 0 {
		if !s.sealingEnabled() {
			return nil, fmt.Errorf("%w: blob is sealed and no encryption key is configured", ErrSerialization)
		}
		plain, err := s.sealer.Open(body, s.sealKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: open sealed blob: %w", ErrSerialization, ErrMalformedBlob, err)
		}
		body = plain
	}

	if flags&blobFlagSnappy != 0 {
		plain, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: decompress blob: %w", ErrSerialization, ErrMalformedBlob, err)
		}
		body = plain
	}

	return body, nil
}

func (s *dataSerializer) sealingEnabled() bool {
	return s.sealer != nil && len(s.sealKey) > 0
}

// checkSchemaVersion gates decoding on the blob's recorded version.
// Newer-than-supported blobs must fail instead of being misread.
func checkSchemaVersion(v int) error {
	if v > models.SchemaVersion {
		return fmt.Errorf("%w: %w: blob version %d, this build reads up to %d",
			ErrSerialization, ErrSchemaVersionMismatch, v, models.SchemaVersion)
	}
	if v < 1 {
		return fmt.Errorf("%w: %w: blob version %d", ErrSerialization, ErrMalformedBlob, v)
	}
	return nil
}

// cloneCollections copies every collection slice so sorting does not
// reorder the caller's data.
func cloneCollections(c models.Collections) models.Collections {
	return models.Collections{
		Tasks:        append([]models.Task(nil), c.Tasks...),
		Categories:   append([]models.Category(nil), c.Categories...),
		TimeEntries:  append([]models.TimeEntry(nil), c.TimeEntries...),
		Accounts:     append([]models.Account(nil), c.Accounts...),
		Transactions: append([]models.Transaction(nil), c.Transactions...),
	}
}
