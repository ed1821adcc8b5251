package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// abiFragments holds just enough of each contract's interface (spec §6)
// to encode calls and decode the two return values this adapter needs.
// Each fragment is parsed once into a cached *abi.ABI.
var abiFragments = map[string]string{
	"licenseAttach": `[
		{"name":"mintAndRegisterIpAndAttachPILTerms","type":"function","stateMutability":"nonpayable",
		 "inputs":[
			{"name":"spgNftContract","type":"address"},
			{"name":"recipient","type":"address"},
			{"name":"ipMetadata","type":"tuple","components":[
				{"name":"ipMetadataURI","type":"string"},
				{"name":"ipMetadataHash","type":"bytes32"},
				{"name":"nftMetadataURI","type":"string"},
				{"name":"nftMetadataHash","type":"bytes32"}
			]},
			{"name":"licenseTermsId","type":"uint256"},
			{"name":"royaltyContext","type":"bytes"}
		 ],
		 "outputs":[{"name":"ipId","type":"address"},{"name":"tokenId","type":"uint256"}]}
	]`,
	"derivativeWorkflow": `[
		{"name":"mintAndRegisterIpAndMakeDerivative","type":"function","stateMutability":"nonpayable",
		 "inputs":[
			{"name":"spgNftContract","type":"address"},
			{"name":"recipient","type":"address"},
			{"name":"parentIpIds","type":"address[]"},
			{"name":"licenseTermsIds","type":"uint256[]"},
			{"name":"licenseTemplate","type":"address"},
			{"name":"royaltyContext","type":"bytes"},
			{"name":"maxMintingFee","type":"uint256"},
			{"name":"maxRts","type":"uint32"},
			{"name":"maxRevenueShare","type":"uint32"}
		 ],
		 "outputs":[{"name":"ipId","type":"address"},{"name":"tokenId","type":"uint256"}]}
	]`,
	"assetRegistry": `[
		{"name":"ipId","type":"function","stateMutability":"view",
		 "inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],
		 "outputs":[{"name":"","type":"address"}]}
	]`,
	"licenseRegistry": `[
		{"name":"getAttachedLicenseTermsCount","type":"function","stateMutability":"view",
		 "inputs":[{"name":"ipId","type":"address"}],
		 "outputs":[{"name":"","type":"uint256"}]},
		{"name":"getAttachedLicenseTerms","type":"function","stateMutability":"view",
		 "inputs":[{"name":"ipId","type":"address"},{"name":"index","type":"uint256"}],
		 "outputs":[{"name":"licenseTemplate","type":"address"},{"name":"licenseTermsId","type":"uint256"}]}
	]`,
	"trackRegistry": `[
		{"name":"registerTracksBatch","type":"function","stateMutability":"nonpayable",
		 "inputs":[{"name":"trackIds","type":"bytes32[]"},{"name":"owners","type":"address[]"}],
		 "outputs":[]},
		{"name":"setTrackCoverBatch","type":"function","stateMutability":"nonpayable",
		 "inputs":[{"name":"trackIds","type":"bytes32[]"},{"name":"coverCids","type":"bytes[]"}],
		 "outputs":[]},
		{"name":"getTrack","type":"function","stateMutability":"view",
		 "inputs":[{"name":"trackId","type":"bytes32"}],
		 "outputs":[{"name":"owner","type":"address"},{"name":"registered","type":"bool"}]},
		{"name":"isRegistered","type":"function","stateMutability":"view",
		 "inputs":[{"name":"trackId","type":"bytes32"}],
		 "outputs":[{"name":"","type":"bool"}]}
	]`,
	"contentRegistry": `[
		{"name":"registerContentFor","type":"function","stateMutability":"nonpayable",
		 "inputs":[{"name":"contentId","type":"bytes32"},{"name":"trackId","type":"bytes32"},{"name":"owner","type":"address"},{"name":"pieceCid","type":"bytes"},{"name":"algo","type":"uint8"}],
		 "outputs":[]},
		{"name":"getContent","type":"function","stateMutability":"view",
		 "inputs":[{"name":"contentId","type":"bytes32"}],
		 "outputs":[{"name":"trackId","type":"bytes32"},{"name":"active","type":"bool"}]}
	]`,
}

var erc721TransferABI = `[
	{"anonymous":false,"name":"Transfer","type":"event","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}
	]}
]`

var (
	parsedABIsMu sync.RWMutex
	parsedABIs   = map[string]abi.ABI{}
)

// mustParseABI is called on every adapter call under concurrent request
// handling (spec §5), so the cache is guarded rather than left to race.
func mustParseABI(name, fragment string) abi.ABI {
	parsedABIsMu.RLock()
	cached, ok := parsedABIs[name]
	parsedABIsMu.RUnlock()
	if ok {
		return cached
	}

	parsedABIsMu.Lock()
	defer parsedABIsMu.Unlock()
	if cached, ok := parsedABIs[name]; ok {
		return cached
	}
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic("chain: invalid abi fragment " + name + ": " + err.Error())
	}
	parsedABIs[name] = parsed
	return parsed
}

func abiFor(name string) abi.ABI {
	return mustParseABI(name, abiFragments[name])
}

func erc721ABI() abi.ABI {
	return mustParseABI("erc721Transfer", erc721TransferABI)
}
