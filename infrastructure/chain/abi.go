// Package chain talks to the narrative contract over JSON-RPC: batched reads,
// signed writes and the LinkedOptio event feed.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method and event names
const (
	methodGetFullNexusBatch = "getFullNexusBatch"
	methodGetFullOptioBatch = "getFullOptioBatch"
	methodNexusCount        = "nexusCount"
	methodAddressToName     = "addressToName"
	methodGetCurrentBid     = "getCurrentBid"
	methodFiscus            = "fiscus"
	methodSumma             = "summa"
	methodBalanceOf         = "balanceOf"
	methodContribute        = "contribute"
	methodBind              = "bind"
	methodRegister          = "register"
	methodSacrifice         = "sacrifice"
	methodWithdraw          = "withdraw"

	eventLinkedOptio = "LinkedOptio"
)

// NarrativeABI is the subset of the contract interface this service uses
const NarrativeABI = `[
  {"type":"function","name":"getFullNexusBatch","stateMutability":"view",
   "inputs":[{"name":"ids","type":"uint256[]"}],
   "outputs":[{"name":"authors","type":"address[]"},{"name":"contents","type":"string[]"},{"name":"nexts","type":"uint256[][]"}]},
  {"type":"function","name":"getFullOptioBatch","stateMutability":"view",
   "inputs":[{"name":"ids","type":"uint256[]"}],
   "outputs":[{"name":"authors","type":"address[]"},{"name":"contents","type":"string[]"},{"name":"origins","type":"uint256[]"},{"name":"destinations","type":"uint256[]"},{"name":"scores","type":"int256[]"}]},
  {"type":"function","name":"nexusCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"addressToName","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getCurrentBid","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"fiscus","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"summa","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"contribute","stateMutability":"payable",
   "inputs":[{"name":"content","type":"string"}],"outputs":[]},
  {"type":"function","name":"bind","stateMutability":"payable",
   "inputs":[{"name":"origin","type":"uint256"},{"name":"destination","type":"uint256"},{"name":"content","type":"string"}],"outputs":[]},
  {"type":"function","name":"register","stateMutability":"nonpayable",
   "inputs":[{"name":"name","type":"string"}],"outputs":[]},
  {"type":"function","name":"sacrifice","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable",
   "inputs":[],"outputs":[]},
  {"type":"event","name":"LinkedOptio","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"origin","type":"uint256","indexed":true},{"name":"destination","type":"uint256","indexed":true}]}
]`

// ParseABI parses NarrativeABI
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(NarrativeABI))
}
