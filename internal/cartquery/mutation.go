package cartquery

import (
	"context"

	"github.com/dujiao-next/storefront/internal/models"
)

// mutation 一次购物车变更的描述
type mutation struct {
	name     string
	fallback string
	// optimistic 在请求前对缓存副本做修改，nil 表示不做乐观更新
	optimistic      func(c *models.Cart)
	perform         func(ctx context.Context) (*models.Cart, error)
	onSuccess       func(result *models.Cart)
	refetchOnSettle bool
}

// mutate 快照 → 乐观更新 → 执行 → 失败回滚 → 成功回调 → 结束后重新加载
func (f *Facade) mutate(ctx context.Context, m mutation) (*models.Cart, error) {
	f.cache.CancelFetches()
	snapshot := f.cache.snapshot()

	applied := false
	if m.optimistic != nil {
		applied = f.cache.Update(m.optimistic)
	}

	result, err := m.perform(ctx)
	f.metrics.RecordMutation(ctx, m.name, err)

	if err != nil {
		f.cache.restore(snapshot)
		if applied {
			f.metrics.RecordRollback(ctx, m.name)
		}
		f.log.Warnw("cart_mutation_failed", "operation", m.name, "rolled_back", applied, "error", err)
		f.notifier.Error(ErrorMessage(err, m.fallback))
	} else if m.onSuccess != nil {
		m.onSuccess(result)
	}

	if m.refetchOnSettle {
		if _, fetchErr := f.Refetch(ctx); fetchErr != nil {
			f.log.Debugw("cart_refetch_after_mutation_failed", "operation", m.name, "error", fetchErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}
