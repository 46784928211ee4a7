package bpcheckout

import (
	"testing"
	"time"
)

func TestDeliveryKey(t *testing.T) {
	body1 := []byte(`{"event":{"name":"invoice_confirmed"},"data":{"id":"12"}}`)
	body2 := []byte(`{"event":{"name":"invoice_paidInFull"},"data":{"id":"12"}}`)

	key1 := DeliveryKey(body1)
	key2 := DeliveryKey(body2)
	key3 := DeliveryKey(body1)

	if key1 != key3 {
		t.Errorf("expected same body to produce same key, got %s and %s", key1, key3)
	}
	if key1 == key2 {
		t.Error("expected different bodies to produce different keys")
	}
	if len(key1) != 64 {
		t.Errorf("expected key to be 64 hex chars, got %d", len(key1))
	}
}

func TestDeliveryCacheCheckAndMark(t *testing.T) {
	cache := NewDeliveryCache(5 * time.Minute)

	if cache.CheckAndMark("key-1") {
		t.Error("expected first delivery to be unseen")
	}
	if !cache.CheckAndMark("key-1") {
		t.Error("expected second delivery to be a duplicate")
	}
	if cache.CheckAndMark("key-2") {
		t.Error("expected distinct key to be unseen")
	}
}

func TestDeliveryCacheFail(t *testing.T) {
	cache := NewDeliveryCache(5 * time.Minute)

	if cache.CheckAndMark("key") {
		t.Fatal("expected first delivery to be unseen")
	}
	cache.Fail("key")
	if cache.CheckAndMark("key") {
		t.Error("expected failed delivery to be retriable")
	}
	if !cache.CheckAndMark("key") {
		t.Error("expected re-marked delivery to be a duplicate")
	}
}

func TestDeliveryCacheExpiry(t *testing.T) {
	cache := NewDeliveryCache(10 * time.Millisecond)

	if cache.CheckAndMark("key") {
		t.Fatal("expected first delivery to be unseen")
	}
	time.Sleep(20 * time.Millisecond)
	if cache.CheckAndMark("key") {
		t.Error("expected entry to expire after ttl")
	}
}
