package tripo

import (
	"context"
	"net/http"

	"github.com/mberenty7/tripo-tools/core"
)

const balancePath = "/user/balance"

// Balance returns the account's available and frozen credits.
func (p *Tripo) Balance(ctx context.Context) (*core.Balance, error) {
	var data balanceData
	if err := p.do(ctx, http.MethodGet, balancePath, nil, "", &data); err != nil {
		return nil, err
	}
	return &core.Balance{Available: data.Balance, Frozen: data.Frozen}, nil
}
