package ledger

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to
// enable multiple Gavel instances to safely coexist on a single Redis server.
//
// Key pattern: gavel:{instance_name}:{entity}:{id}
// Channel pattern: gavel:{instance_name}:{family}_events

// AuctionKey returns the Redis key for an asset's auction record.
// Pattern: gavel:{instance_name}:auction:{asset}
func AuctionKey(instanceName, asset string) string {
	return fmt.Sprintf("gavel:%s:auction:%s", instanceName, asset)
}

// EscrowKey returns the Redis key for an asset's bid escrow hash.
// Fields are bidder identities, values their escrowed totals.
// Pattern: gavel:{instance_name}:escrow:{asset}
func EscrowKey(instanceName, asset string) string {
	return fmt.Sprintf("gavel:%s:escrow:%s", instanceName, asset)
}

// ListingKey returns the Redis key for an asset's fixed-price listing.
// Pattern: gavel:{instance_name}:listing:{asset}
func ListingKey(instanceName, asset string) string {
	return fmt.Sprintf("gavel:%s:listing:%s", instanceName, asset)
}

// ProceedsKey returns the Redis key for a seller's withdrawable balance.
// Stored as a plain integer counter so credits are a single INCRBY.
// Pattern: gavel:{instance_name}:proceeds:{seller}
func ProceedsKey(instanceName, seller string) string {
	return fmt.Sprintf("gavel:%s:proceeds:%s", instanceName, seller)
}

// AssetIndexKey returns the Redis key for the ZSET of assets with live
// market state (an open auction or listing), scored by creation time in ms.
// Pattern: gavel:{instance_name}:assets
func AssetIndexKey(instanceName string) string {
	return fmt.Sprintf("gavel:%s:assets", instanceName)
}

// AuctionEventsChannel returns the Pub/Sub channel for auction lifecycle and
// bid events. Pattern: gavel:{instance_name}:auction_events
func AuctionEventsChannel(instanceName string) string {
	return fmt.Sprintf("gavel:%s:auction_events", instanceName)
}

// SaleEventsChannel returns the Pub/Sub channel for instant-sale and
// proceeds events. Pattern: gavel:{instance_name}:sale_events
func SaleEventsChannel(instanceName string) string {
	return fmt.Sprintf("gavel:%s:sale_events", instanceName)
}

// OperatorIdentity returns the identity under which the engine holds
// escrowed assets while an auction is live.
func OperatorIdentity(instanceName string) string {
	return fmt.Sprintf("gavel:%s:operator", instanceName)
}

// VaultAccount returns the account identity holding all escrowed funds for
// an instance. Bids move bidder → vault; withdrawals move vault → caller.
func VaultAccount(instanceName string) string {
	return fmt.Sprintf("gavel:%s:vault", instanceName)
}
