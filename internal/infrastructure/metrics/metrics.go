package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 导入行结果标签
const (
	ImportInserted  = "inserted"
	ImportDiscarded = "discarded"
)

// Metrics 补偿业务指标
type Metrics struct {
	Created      *prometheus.CounterVec
	Redeemed     prometheus.Counter
	RedeemNoop   prometheus.Counter
	ImportedRows *prometheus.CounterVec
}

// New 在给定的 Registerer 上注册指标。进程里用 prometheus.DefaultRegisterer，
// 测试里每次传新的 prometheus.NewRegistry()
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compensation_created_total",
			Help: "发放的补偿券数量",
		}, []string{"coupon"}),
		Redeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "compensation_redeemed_total",
			Help: "兑换成功的补偿券数量",
		}),
		RedeemNoop: factory.NewCounter(prometheus.CounterOpts{
			Name: "compensation_redeem_noop_total",
			Help: "对已兑换券的重复兑换次数",
		}),
		ImportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compensation_import_rows_total",
			Help: "表格导入的行数",
		}, []string{"result"}),
	}
}
