package config

import (
	"time"

	"xrplprover/types"
)

type Configuration struct {
	// Server config
	Server struct {
		UseSSL    bool   `yaml:"ssl" envconfig:"SSL"`
		Port      int    `yaml:"port" envconfig:"PORT"`
		RedisPort int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost string `yaml:"redis_host" envconfig:"REDIS_HOST"`
		LogDir    string `yaml:"log_dir" envconfig:"LOG_DIR"`
		LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
		// HMAC secret of caller bearer tokens
		JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	} `yaml:"server"`
	// Amplifier hub contracts and RPC endpoints
	Amplifier struct {
		RPCList            []string `yaml:"rpc_list" envconfig:"RPC_LIST"`
		ServiceName        string   `yaml:"service_name"`
		VerifierAddress    string   `yaml:"verifier_address"`
		RouterAddress      string   `yaml:"router_address"`
		GatewayAddress     string   `yaml:"gateway_address"`
		MultisigAddress    string   `yaml:"multisig_address"`
		CoordinatorAddress string   `yaml:"coordinator_address"`
		GovernanceAddress  string   `yaml:"governance_address"`
		AdminAddress       string   `yaml:"admin_address"`
	} `yaml:"amplifier"`
	// XRPL-related config
	XRPL struct {
		ChainName            string `yaml:"chain_name"`
		MultisigAccount      string `yaml:"multisig_account"`
		XRPTokenID           string `yaml:"xrp_token_id"`
		Fee                  uint64 `yaml:"fee"`
		TicketCountThreshold uint32 `yaml:"ticket_count_threshold"`
		// initial ticket pool, only used when none is stored yet
		NextSequenceNumber       uint32   `yaml:"next_sequence_number"`
		LastAssignedTicketNumber uint32   `yaml:"last_assigned_ticket_number"`
		AvailableTickets         []uint32 `yaml:"available_tickets"`
	} `yaml:"XRPL"`
	SigningThreshold struct {
		Numerator   uint64 `yaml:"numerator"`
		Denominator uint64 `yaml:"denominator"`
	} `yaml:"signing_threshold"`
	VerifierSetDiffThreshold int `yaml:"verifier_set_diff_threshold"`
	NATS                     struct {
		URL           string `yaml:"url" envconfig:"URL"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	ProofRelayInterval time.Duration `yaml:"proof_relay_interval"`
}

var Config Configuration

// maximum number of Amplifier RPC retries per endpoint
const AMPLIFIER_RETRIES = 2

var RedisStatusSets = map[types.TxStatus]string{
	types.TxStatusPending:       "txs:pending",         // proof requested, signing or awaiting submission
	types.TxStatusConfirmed:     "txs:confirmed",       // included in a validated ledger
	types.TxStatusFailedOnChain: "txs:failed_on_chain", // included but not successful, slot consumed
	types.TxStatusInconclusive:  "txs:inconclusive",    // verifiers could not agree
}
