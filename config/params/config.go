// Package params defines the protocol-level constants that every
// consensus component depends on. Callers read BeaconConfig() rather
// than importing constants directly, so tests can install a minimal
// config via OverrideBeaconConfig without touching production code.
package params

import "sync"

// BeaconChainConfig groups the phase-0 protocol constants. Field names
// mirror the protocol's SCREAMING_SNAKE_CASE names in Go-idiomatic
// CamelCase.
type BeaconChainConfig struct {
	// Time parameters.
	SecondsPerSlot uint64
	SlotsPerEpoch  uint64
	GenesisSlot    uint64
	GenesisEpoch   uint64
	FarFutureEpoch uint64

	// Gwei values.
	MinDepositAmount        uint64
	MaxEffectiveBalance     uint64
	EjectionBalance         uint64
	EffectiveBalanceInc     uint64

	// Historical ring-buffer lengths.
	SlotsPerHistoricalRoot   uint64
	EpochsPerHistoricalVector uint64
	EpochsPerSlashingsVector uint64
	HistoricalRootsLimit     uint64
	EpochsPerEth1VotingPeriod uint64

	// Committee / shuffling parameters.
	ShuffleRoundCount       uint64
	MaxIndexCount           uint64 // 2^40, shuffling overflow ceiling
	TargetCommitteeSize     uint64
	MaxCommitteesPerSlot    uint64
	MaxValidatorsPerCommittee uint64
	MinSeedLookahead        uint64
	MaxSeedLookahead        uint64
	MinGenesisActiveValidatorCount uint64

	// Validator lifecycle.
	MinValidatorWithdrawabilityDelay uint64
	PersistentCommitteePeriod        uint64
	MinPerEpochChurnLimit            uint64
	ChurnLimitQuotient               uint64
	MinSlashingPenaltyQuotient       uint64
	WhistleblowerRewardQuotient      uint64
	ProposerRewardQuotient           uint64
	MinEpochsToInactivityPenalty     uint64
	InactivityPenaltyQuotient        uint64
	BaseRewardFactor                 uint64
	BaseRewardsPerEpoch              uint64

	// Deposit contract.
	DepositContractTreeDepth uint64

	// Max operations per block.
	MaxProposerSlashings uint64
	MaxAttesterSlashings uint64
	MaxAttestations      uint64
	MaxDeposits          uint64
	MaxVoluntaryExits    uint64
	MaxTransfers         uint64

	// Attestation inclusion window.
	MinAttestationInclusionDelay uint64

	// Domain types.
	DomainBeaconProposer uint64
	DomainBeaconAttester uint64
	DomainRandao         uint64
	DomainDeposit        uint64
	DomainVoluntaryExit  uint64
	DomainTransfer       uint64

	// Fork versioning.
	GenesisForkVersion [4]byte

	// Networking.
	MaxBlocksPerRequest uint64
}

var (
	beaconConfig = mainnetConfig()
	configLock   sync.RWMutex
)

// BeaconConfig returns the currently active configuration. Safe for
// concurrent use; callers must not mutate the returned pointer's
// fields (treat it as read-only).
func BeaconConfig() *BeaconChainConfig {
	configLock.RLock()
	defer configLock.RUnlock()
	return beaconConfig
}

// OverrideBeaconConfig installs cfg as the active configuration. Tests
// use this to swap in MinimalSpecConfig for smaller fixtures.
func OverrideBeaconConfig(cfg *BeaconChainConfig) {
	configLock.Lock()
	defer configLock.Unlock()
	beaconConfig = cfg
}

func mainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:   12,
		SlotsPerEpoch:    32,
		GenesisSlot:      0,
		GenesisEpoch:     0,
		FarFutureEpoch:   1<<64 - 1,

		MinDepositAmount:    1_000_000_000,
		MaxEffectiveBalance: 32_000_000_000,
		EjectionBalance:     16_000_000_000,
		EffectiveBalanceInc: 1_000_000_000,

		SlotsPerHistoricalRoot:    8192,
		EpochsPerHistoricalVector: 65536,
		EpochsPerSlashingsVector:  8192,
		HistoricalRootsLimit:      16777216,
		EpochsPerEth1VotingPeriod: 16,

		ShuffleRoundCount:         90,
		MaxIndexCount:             1 << 40,
		TargetCommitteeSize:       128,
		MaxCommitteesPerSlot:      64,
		MaxValidatorsPerCommittee: 2048,
		MinSeedLookahead:          1,
		MaxSeedLookahead:          4,
		MinGenesisActiveValidatorCount: 16384,

		MinValidatorWithdrawabilityDelay: 256,
		PersistentCommitteePeriod:        2048,
		MinPerEpochChurnLimit:            4,
		ChurnLimitQuotient:               65536,
		MinSlashingPenaltyQuotient:       32,
		WhistleblowerRewardQuotient:      512,
		ProposerRewardQuotient:           8,
		MinEpochsToInactivityPenalty:     4,
		InactivityPenaltyQuotient:        1 << 25,
		BaseRewardFactor:                 64,
		BaseRewardsPerEpoch:              4,

		DepositContractTreeDepth: 32,

		MaxProposerSlashings: 16,
		MaxAttesterSlashings: 2,
		MaxAttestations:      128,
		MaxDeposits:          16,
		MaxVoluntaryExits:    16,
		MaxTransfers:         0, // transfers are disabled on mainnet

		MinAttestationInclusionDelay: 1,

		DomainBeaconProposer: 0,
		DomainBeaconAttester: 1,
		DomainRandao:         2,
		DomainDeposit:        3,
		DomainVoluntaryExit:  4,
		DomainTransfer:       5,

		GenesisForkVersion: [4]byte{0, 0, 0, 0},

		MaxBlocksPerRequest: 1024,
	}
}

// MinimalSpecConfig returns a configuration with small ring-buffer and
// committee sizes, suitable for fast-running tests.
func MinimalSpecConfig() *BeaconChainConfig {
	cfg := mainnetConfig()
	cfg.SlotsPerEpoch = 8
	cfg.SlotsPerHistoricalRoot = 64
	cfg.EpochsPerHistoricalVector = 64
	cfg.EpochsPerSlashingsVector = 64
	cfg.TargetCommitteeSize = 4
	cfg.MaxCommitteesPerSlot = 4
	cfg.MinGenesisActiveValidatorCount = 64
	cfg.ShuffleRoundCount = 10
	return cfg
}
