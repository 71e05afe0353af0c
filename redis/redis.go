package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"xrplprover/config"
	"xrplprover/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
)

const (
	keyConfig             = "config"
	keyTicketPool         = "ticketpool"
	keyCurrentVerifierSet = "verifierset:current"
	keyNextVerifierSet    = "verifierset:next"
	keyTokens             = "tokens"
	keyPublishedProofs    = "proofs:published"
)

func txKey(hash common.Hash) string     { return fmt.Sprintf("txinfo:%s", hash.Hex()) }
func sessionKey(id uint64) string       { return fmt.Sprintf("sessiontx:%d", id) }
func messageKey(ccid string) string     { return fmt.Sprintf("messagetx:%s", ccid) }
func verifierSetKey(id string) string   { return fmt.Sprintf("verifierset:%s", id) }
func tokenKey(id types.TokenID) string  { return fmt.Sprintf("token:%s", id.Hex()) }
func statusSet(s types.TxStatus) string { return config.RedisStatusSets[s] }

// Store keeps the prover state in Redis. Every write of one entrypoint goes
// through Commit as a single MULTI/EXEC.
type Store struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(addr string) *Store {
	return &Store{
		pool: &redis.Pool{
			MaxIdle: 5,
			Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
		},
	}
}

// Init connects to the Redis instance from the global configuration.
func Init() *Store {
	return New(fmt.Sprintf("%s:%d", config.Config.Server.RedisHost, config.Config.Server.RedisPort))
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

// getJSON loads a JSON record; it reports false when the key is missing.
func (s *Store) getJSON(key string, out interface{}) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		log.Printf("error Redis GET %s: %s", key, err.Error())
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cannot unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) getHash(key string) (common.Hash, bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		log.Printf("error Redis GET %s: %s", key, err.Error())
		return common.Hash{}, false, err
	}
	return common.HexToHash(value), true, nil
}

func (s *Store) SaveConfig(cfg interface{}) error {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config to JSON: %w", err)
	}

	if _, err := conn.Do("SET", keyConfig, data); err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}
	return nil
}

// TicketPool returns nil, nil when no pool has been stored yet.
func (s *Store) TicketPool() (*types.TicketPool, error) {
	var pool types.TicketPool
	found, err := s.getJSON(keyTicketPool, &pool)
	if err != nil || !found {
		return nil, err
	}
	return &pool, nil
}

func (s *Store) TransactionInfo(txHash common.Hash) (*types.TransactionInfo, error) {
	var info types.TransactionInfo
	found, err := s.getJSON(txKey(txHash), &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

func (s *Store) SessionTx(sessionID uint64) (common.Hash, bool, error) {
	return s.getHash(sessionKey(sessionID))
}

// MessageTx is the latest transaction built for a message.
func (s *Store) MessageTx(id types.CrossChainID) (common.Hash, bool, error) {
	return s.getHash(messageKey(id.String()))
}

func (s *Store) CurrentVerifierSet() (*types.VerifierSet, error) {
	return s.verifierSet(keyCurrentVerifierSet)
}

func (s *Store) NextVerifierSet() (*types.VerifierSet, error) {
	return s.verifierSet(keyNextVerifierSet)
}

// VerifierSet loads an archived set by id. Every set that was ever current
// or next is archived.
func (s *Store) VerifierSet(id string) (*types.VerifierSet, error) {
	return s.verifierSet(verifierSetKey(id))
}

func (s *Store) verifierSet(key string) (*types.VerifierSet, error) {
	var vs types.VerifierSet
	found, err := s.getJSON(key, &vs)
	if err != nil || !found {
		return nil, err
	}
	return &vs, nil
}

func (s *Store) Token(id types.TokenID) (*types.RegisteredToken, error) {
	var token types.RegisteredToken
	found, err := s.getJSON(tokenKey(id), &token)
	if err != nil || !found {
		return nil, err
	}
	return &token, nil
}

func (s *Store) Tokens() ([]*types.RegisteredToken, error) {
	conn := s.pool.Get()
	defer conn.Close()

	ids, err := redis.Strings(conn.Do("SMEMBERS", keyTokens))
	if err != nil {
		return nil, err
	}

	tokens := make([]*types.RegisteredToken, 0, len(ids))
	for _, id := range ids {
		token, err := s.Token(common.HexToHash(id))
		if err != nil {
			return nil, err
		}
		if token != nil {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

// TransactionsByStatus scans the status set; O(n) in the size of the set.
func (s *Store) TransactionsByStatus(status types.TxStatus) ([]*types.TransactionInfo, error) {
	set, ok := config.RedisStatusSets[status]
	if !ok {
		return nil, errors.New("redis key not found for status")
	}

	conn := s.pool.Get()
	defer conn.Close()

	txs := make([]*types.TransactionInfo, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, err
		}

		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				log.Printf("status set %s references missing record %s", set, key)
				continue
			}
			if err != nil {
				log.Printf("error Redis GET: %s", err.Error())
				return nil, err
			}

			var info types.TransactionInfo
			if err := json.Unmarshal(data, &info); err != nil {
				return nil, err
			}
			if info.Status == status {
				txs = append(txs, &info)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return txs, nil
}

func (s *Store) CountByStatus(status types.TxStatus) (int, error) {
	conn := s.pool.Get()
	defer conn.Close()

	return redis.Int(conn.Do("SCARD", statusSet(status)))
}

// Commit applies the change in one MULTI/EXEC transaction.
func (s *Store) Commit(change *types.StateChange) error {
	if change == nil || change.Empty() {
		return nil
	}

	cmds, err := commands(change)
	if err != nil {
		return err
	}

	conn := s.pool.Get()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return err
	}
	for _, c := range cmds {
		if err := conn.Send(c.name, c.args...); err != nil {
			if _, discardErr := conn.Do("DISCARD"); discardErr != nil {
				log.Printf("error Redis DISCARD: %s", discardErr.Error())
			}
			return err
		}
	}
	replies, err := redis.Values(conn.Do("EXEC"))
	if err != nil {
		log.Printf("error Redis EXEC: %s", err.Error())
		return err
	}
	// EXEC applies the queued commands even when one of them fails
	for i, reply := range replies {
		if replyErr, ok := reply.(redis.Error); ok {
			log.Printf("error Redis %s in EXEC: %s", cmds[i].name, replyErr.Error())
			return fmt.Errorf("%s: %w", cmds[i].name, replyErr)
		}
	}
	return nil
}

type command struct {
	name string
	args []interface{}
}

func commands(change *types.StateChange) ([]command, error) {
	var cmds []command
	set := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("cannot marshal %s to JSON: %w", key, err)
		}
		cmds = append(cmds, command{"SET", []interface{}{key, data}})
		return nil
	}

	if change.TicketPool != nil {
		if err := set(keyTicketPool, change.TicketPool); err != nil {
			return nil, err
		}
	}

	for _, w := range change.Transactions {
		if w.Info == nil || w.Info.Status == "" {
			return nil, errors.New("transaction record cannot have empty status")
		}
		key := txKey(w.Info.TxHash)
		if w.PrevStatus != "" && w.PrevStatus != w.Info.Status {
			cmds = append(cmds, command{"SREM", []interface{}{statusSet(w.PrevStatus), key}})
		}
		if err := set(key, w.Info); err != nil {
			return nil, err
		}
		cmds = append(cmds, command{"SADD", []interface{}{statusSet(w.Info.Status), key}})
	}

	for id, hash := range change.SessionTx {
		cmds = append(cmds, command{"SET", []interface{}{sessionKey(id), hash.Hex()}})
	}
	for ccid, hash := range change.MessageTx {
		cmds = append(cmds, command{"SET", []interface{}{messageKey(ccid), hash.Hex()}})
	}

	if change.CurrentVerifierSet != nil {
		if err := set(keyCurrentVerifierSet, change.CurrentVerifierSet); err != nil {
			return nil, err
		}
		if err := set(verifierSetKey(change.CurrentVerifierSet.ID()), change.CurrentVerifierSet); err != nil {
			return nil, err
		}
	}
	if change.ClearNext {
		cmds = append(cmds, command{"DEL", []interface{}{keyNextVerifierSet}})
	}
	if change.NextVerifierSet != nil {
		if err := set(keyNextVerifierSet, change.NextVerifierSet); err != nil {
			return nil, err
		}
		if err := set(verifierSetKey(change.NextVerifierSet.ID()), change.NextVerifierSet); err != nil {
			return nil, err
		}
	}

	for _, token := range change.Tokens {
		if err := set(tokenKey(token.TokenID), token); err != nil {
			return nil, err
		}
		cmds = append(cmds, command{"SADD", []interface{}{keyTokens, token.TokenID.Hex()}})
	}

	return cmds, nil
}

// MarkProofPublished records that the completed proof of a session was
// relayed. It reports false if it already was.
func (s *Store) MarkProofPublished(sessionID uint64) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	added, err := redis.Int(conn.Do("SADD", keyPublishedProofs, strconv.FormatUint(sessionID, 10)))
	if err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return false, err
	}
	return added == 1, nil
}

func (s *Store) IsProofPublished(sessionID uint64) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	return redis.Bool(conn.Do("SISMEMBER", keyPublishedProofs, strconv.FormatUint(sessionID, 10)))
}
