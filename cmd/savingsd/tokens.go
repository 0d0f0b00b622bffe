package main

import (
	"log"

	"SavingsDAO/internal/dao"
	"SavingsDAO/internal/model"
	"SavingsDAO/internal/token"
)

// backfillPool mints the local assets the restored ledger says the pool
// holds. Local tokens start empty on every run while the snapshot
// survives, so without this every payout after a restart would fail.
func backfillPool(svc *dao.Service, pool model.Address, stable, reward *token.Memory) {
	held := svc.PoolBalance()
	for _, b := range []struct {
		tok  *token.Memory
		want model.Amount
	}{{stable, held.Stable}, {reward, held.Reward}} {
		if minted := b.tok.TopUp(pool, b.want); !minted.IsZero() {
			log.Printf("[INFO] backfilled %s %s to %s from restored state", minted, b.tok.Symbol(), pool)
		}
	}
}
