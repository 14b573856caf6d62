package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/inventory_backend/config"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/mmdatafocus/inventory_backend/workflow")

type ShortagePolicy string

const (
	// ShortageReject fails a consumption the layers cannot cover and rolls it back.
	ShortageReject ShortagePolicy = config.ShortagePolicyReject
	// ShortagePartial consumes what the layers hold and reports the rest as Shortfall.
	ShortagePartial ShortagePolicy = config.ShortagePolicyPartial
)

type Options struct {
	ShortagePolicy ShortagePolicy
	// Now stamps new movements; defaults to time.Now.
	Now func() time.Time
}

// Engine runs every inventory operation for the business carried in ctx.
type Engine struct {
	db     *gorm.DB
	logger *logrus.Logger
	locker Locker
	policy ShortagePolicy
	now    func() time.Time
}

func NewEngine(db *gorm.DB, logger *logrus.Logger, locker Locker, opts Options) *Engine {
	if logger == nil {
		logger = config.GetLogger()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	policy := opts.ShortagePolicy
	if policy != ShortagePartial {
		policy = ShortageReject
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{db: db, logger: logger, locker: locker, policy: policy, now: now}
}

func (e *Engine) DB() *gorm.DB { return e.db }

func (e *Engine) ShortagePolicy() ShortagePolicy { return e.policy }

func (e *Engine) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return e.db.WithContext(ctx).Transaction(fn)
}

// inventoryAccountFor is the account that carries the value of stock in a stage:
// work in process for stage 2, the item's own sub-account otherwise.
func inventoryAccountFor(stage models.InventoryStage, item *models.Item, sys map[string]int) int {
	if stage == models.StageInProcess {
		return sys[models.AccountCodeWorkInProcess]
	}
	return item.SubAccountId
}
