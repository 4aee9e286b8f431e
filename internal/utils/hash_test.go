// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/MKhiriev/go-life-tracker/models"
)

func TestHash_Deterministic(t *testing.T) {
	data := []byte("test-data")

	sum1 := Hash(data)
	sum2 := Hash(data)

	if len(sum1) == 0 {
		t.Fatal("hash result is empty")
	}

	if !bytes.Equal(sum1, sum2) {
		t.Fatal("hash must be deterministic for the same input")
	}

	// verify against direct SHA-256 computation
	expected := sha256.Sum256(data)
	if !bytes.Equal(sum1, expected[:]) {
		t.Fatalf("unexpected hash value\nwant: %x\ngot:  %x", expected, sum1)
	}
}

func TestHashHex_WithEntityPayload(t *testing.T) {
	task := models.Task{
		SyncInfo: models.SyncInfo{ID: "0198c5b2-0000-7000-8000-000000000001"},
		Title:    "weekly review",
		Status:   models.TaskStatusOpen,
	}

	// Сериализуем Payload в JSON, как это делает сериализатор
	payloadBytes, err := json.Marshal(task.Payload())
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	got := HashHex(payloadBytes)

	// Эталонный хеш считаем напрямую через crypto/sha256
	sum := sha256.Sum256(payloadBytes)
	want := hex.EncodeToString(sum[:])

	if got != want {
		t.Errorf("HashHex mismatch:\n  got:  %s\n  want: %s", got, want)
	}
}

func TestHashHex_DifferentPayloads(t *testing.T) {
	task1 := models.Task{Title: "groceries", Status: models.TaskStatusOpen}
	task2 := models.Task{Title: "taxes", Status: models.TaskStatusOpen}

	bytes1, _ := json.Marshal(task1.Payload())
	bytes2, _ := json.Marshal(task2.Payload())

	hash1 := HashHex(bytes1)
	hash2 := HashHex(bytes2)

	if hash1 == hash2 {
		t.Error("different payloads must produce different hashes")
	}
}

func TestHashHex_IgnoresBookkeeping(t *testing.T) {
	// два устройства с одинаковым содержимым, но разными id и временем
	base := models.Account{Name: "cash", Currency: "EUR", OpeningBalanceMinor: 5000}

	copy1 := base
	copy1.ID = "0198c5b2-0000-7000-8000-00000000000a"
	copy2 := base
	copy2.ID = "0198c5b2-0000-7000-8000-00000000000b"

	bytes1, _ := json.Marshal(copy1.Payload())
	bytes2, _ := json.Marshal(copy2.Payload())

	if HashHex(bytes1) != HashHex(bytes2) {
		t.Error("content hash must not depend on id or timestamps")
	}
}

const testHashKey = "test-secret-key"

func TestHashString_MatchesDirectHMAC(t *testing.T) {
	data := "payload-to-sign"

	got := HashString(data, testHashKey)

	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write([]byte(data))
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("HashString mismatch:\n  got:  %s\n  want: %s", got, want)
	}
}

func TestHashBytesKeyed_DifferentKeys(t *testing.T) {
	data := []byte("same-data")

	hash1 := HashBytesKeyed(data, "key-one")
	hash2 := HashBytesKeyed(data, "key-two")

	if hash1 == hash2 {
		t.Error("different keys must produce different signatures")
	}
}
