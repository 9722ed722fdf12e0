package keyring

import (
	"context"
	"fmt"

	"e2estore/internal/domain"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	metadataBucket = "metadata"
	keysBucket     = "private_keys"
	versionKey     = "version"
	customerIDKey  = "customer_id"
	schemaVersion  = 0
)

// BoltKeyring stores device state in a single bbolt file.
type BoltKeyring struct {
	db *bolt.DB
}

// OpenBolt creates (or loads) the keyring at path.
func OpenBolt(path string) (*BoltKeyring, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("keyring: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(keysBucket)); err != nil {
			return err
		}
		if v := meta.Get([]byte(versionKey)); v != nil {
			if len(v) != 1 || v[0] != schemaVersion {
				return fmt.Errorf("keyring: incompatible version %v", v)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{schemaVersion})
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltKeyring{db: db}, nil
}

func (k *BoltKeyring) Close() error {
	return k.db.Close()
}

func (k *BoltKeyring) get(bucket, key string) ([]byte, error) {
	var out []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (k *BoltKeyring) put(bucket, key string, value []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), value)
	})
}

func (k *BoltKeyring) PrivateKey(_ context.Context, role domain.Role) (string, error) {
	v, err := k.get(keysBucket, role.String())
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (k *BoltKeyring) SetPrivateKey(_ context.Context, role domain.Role, privateKey string) error {
	return k.put(keysBucket, role.String(), []byte(privateKey))
}

func (k *BoltKeyring) DeletePrivateKey(_ context.Context, role domain.Role) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).Delete([]byte(role.String()))
	})
}

func (k *BoltKeyring) CustomerID(context.Context) (uuid.UUID, error) {
	v, err := k.get(metadataBucket, customerIDKey)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.ParseBytes(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("keyring: stored customer id: %w", err)
	}
	return id, nil
}

func (k *BoltKeyring) SetCustomerID(_ context.Context, id uuid.UUID) error {
	return k.put(metadataBucket, customerIDKey, []byte(id.String()))
}

var (
	_ Keyring = (*BoltKeyring)(nil)
	_ Keyring = (*Memory)(nil)
)
