package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationRecordVersionV1 = 1

var (
	ErrVerificationNotFound         = errors.New("verification record not found")
	ErrVerificationExpired          = errors.New("verification record expired")
	ErrVerificationSecretMismatch   = errors.New("verification secret mismatch")
	ErrVerificationAttemptsExceeded = errors.New("verification attempts exceeded")
	ErrVerificationRedisUnavailable = errors.New("verification redis unavailable")
)

// consumeVerificationLua atomically performs GET→validate→DEL/SET on a record.
// KEYS[1] = record key
// ARGV[1] = provided hash (32 bytes)
// ARGV[2] = max attempts
// ARGV[3] = now, unix milliseconds
//
// Record layout: version(1) attempts(2) expiresAtMs(8) accountIDLen(2) accountID hash(32).
// Returns the record bytes on success or an error reply:
// "not_found", "expired", "attempts_exceeded", "secret_mismatch".
var consumeVerificationLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local providedHash = ARGV[1]
local maxAttempts = tonumber(ARGV[2])
local nowMs = tonumber(ARGV[3])

if string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local attempts = string.byte(data, 2) * 256 + string.byte(data, 3)

local expiresAt = 0
for i = 4, 11 do
  expiresAt = expiresAt * 256 + string.byte(data, i)
end

if nowMs >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

local idLen = string.byte(data, 12) * 256 + string.byte(data, 13)
local hashOffset = 14 + idLen
local storedHash = string.sub(data, hashOffset, hashOffset + 31)

if storedHash ~= providedHash then
  attempts = attempts + 1
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local newData = string.sub(data, 1, 1) .. string.char(math.floor(attempts / 256), attempts % 256) .. string.sub(data, 4)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='secret_mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// VerificationRecord is the stored form of one pending verification code.
type VerificationRecord struct {
	AccountID string
	CodeHash  [32]byte
	// ExpiresAt is unix milliseconds.
	ExpiresAt int64
	Attempts  uint16
}

// Expired reports whether the record is past its expiry at now.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiresAt
}

// VerificationStore keeps at most one code per account.
type VerificationStore struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewVerificationStore returns a store namespaced by prefix ("ver" when
// empty). timeout bounds every call; zero selects 250ms.
func NewVerificationStore(redisClient redis.UniversalClient, prefix string, timeout time.Duration) *VerificationStore {
	if prefix == "" {
		prefix = "ver"
	}
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &VerificationStore{
		redis:   redisClient,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (s *VerificationStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Save writes record, replacing any prior code for the account. The Redis
// key lives for ttl, which callers set past record.ExpiresAt so that a late
// submission is reported as expired rather than missing.
func (s *VerificationStore) Save(ctx context.Context, record *VerificationRecord, ttl time.Duration) error {
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(record.AccountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}

	return nil
}

// Consume checks providedHash against the account's pending code at now.
// On success the record is deleted and returned.
func (s *VerificationStore) Consume(
	ctx context.Context,
	accountID string,
	providedHash [32]byte,
	maxAttempts int,
	now time.Time,
) (*VerificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := consumeVerificationLua.Run(ctx, s.redis,
		[]string{s.key(accountID)},
		string(providedHash[:]),
		maxAttempts,
		now.UnixMilli(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrVerificationNotFound
		case "expired":
			return nil, ErrVerificationExpired
		case "attempts_exceeded":
			return nil, errors.Join(ErrVerificationSecretMismatch, ErrVerificationAttemptsExceeded)
		case "secret_mismatch":
			return nil, ErrVerificationSecretMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrVerificationRedisUnavailable)
	}

	record, decErr := decodeVerificationRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, decErr)
	}

	// Lua string comparison is not constant-time.
	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrVerificationSecretMismatch
	}

	return record, nil
}

// Restore puts back a record taken by Consume when the caller could not
// complete the verification. A code saved since is kept; the boolean reports
// whether record was written.
func (s *VerificationStore) Restore(ctx context.Context, record *VerificationRecord, ttl time.Duration) (bool, error) {
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.redis.SetNX(ctx, s.key(record.AccountID), encoded, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationRedisUnavailable, err)
	}
	return ok, nil
}

func encodeVerificationRecord(record *VerificationRecord) ([]byte, error) {
	if len(record.AccountID) > 65535 {
		return nil, errors.New("verification record account id too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(verificationRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	record := &VerificationRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var idLen uint16
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(reader, id); err != nil {
		return nil, err
	}
	record.AccountID = string(id)

	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
