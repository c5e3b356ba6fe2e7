package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
)

func TestRedisStore_Get_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectGet("test:mykey").SetVal(`{"translations":[]}`)

	val, ok := store.Get(context.Background(), "mykey")
	if !ok {
		t.Error("Expected cache hit")
	}
	if string(val) != `{"translations":[]}` {
		t.Errorf("Unexpected value %q", val)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Get_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectGet("test:mykey").RedisNil()

	val, ok := store.Get(context.Background(), "mykey")
	if ok {
		t.Error("Expected cache miss")
	}
	if val != nil {
		t.Errorf("Expected nil, got %q", val)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Get_ErrorIsMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectGet("test:mykey").SetErr(errors.New("connection reset"))

	if _, ok := store.Get(context.Background(), "mykey"); ok {
		t.Error("Expected a Redis error to read as a miss")
	}
}

func TestRedisStore_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectSet("test:mykey", []byte("myvalue"), 3*time.Hour).SetVal("OK")

	if err := store.Set(context.Background(), "mykey", []byte("myvalue"), 3*time.Hour); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Set_NoTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectSet("test:mykey", []byte("myvalue"), 0).SetVal("OK")

	if err := store.Set(context.Background(), "mykey", []byte("myvalue"), 0); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Set_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectSet("test:mykey", []byte("myvalue"), time.Hour).SetErr(errors.New("READONLY"))

	if err := store.Set(context.Background(), "mykey", []byte("myvalue"), time.Hour); err == nil {
		t.Error("Expected Set to surface the Redis error")
	}
}

func TestRedisStore_DefaultKeyPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "", zerolog.Nop())

	mock.ExpectGet("transapi:hash123").SetVal("[]")

	val, ok := store.Get(context.Background(), "hash123")
	if !ok || string(val) != "[]" {
		t.Errorf("Expected '[]', got %q (ok=%v)", val, ok)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisStoreFromClient(db, "test:", zerolog.Nop())

	mock.ExpectPing().SetVal("PONG")

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
