package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"compsystem/internal/infrastructure/metrics"
	"compsystem/internal/infrastructure/sheet"
	"compsystem/internal/model"
	"compsystem/pkg/idgen"
	"compsystem/pkg/phone"

	"go.uber.org/zap"
)

// 导入表头的候选名称，按顺序尝试
var (
	phoneHeaders       = []string{"טלפון", "מספר טלפון", "phone", "phone number", "telephone", "tel"}
	nameHeaders        = []string{"שם", "שם לקוח", "name", "customer name"}
	descriptionHeaders = []string{"פיצוי", "זיכוי", "compensation", "coupon"}
	notesHeaders       = []string{"הערות", "notes", "reason"}
)

type ImportResult struct {
	Inserted   int64  `json:"inserted"`
	Discarded  int    `json:"discarded"`
	BatchNo    string `json:"batch_no"`
	FirstPhone string `json:"first_phone"`
}

type ImportService struct {
	store   CompensationStore
	maxRows int
	now     func() time.Time
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewImportService(store CompensationStore, maxRows int, m *metrics.Metrics, log *zap.Logger) *ImportService {
	return &ImportService{
		store:   store,
		maxRows: maxRows,
		now:     time.Now,
		metrics: m,
		log:     log,
	}
}

// ImportFile 读取上传的表格后导入
func (s *ImportService) ImportFile(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}
	rows, err := sheet.ReadRows(filename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidFile, err)
	}
	return s.Import(ctx, rows)
}

// Import 把表格行转换成补偿记录并一次性写入。
// 手机号为空的行直接丢弃；没有可导入的行时返回 ErrEmptyImport，什么也不写。
func (s *ImportService) Import(ctx context.Context, rows []model.ImportRow) (*ImportResult, error) {
	if _, err := RequireSession(ctx); err != nil {
		return nil, err
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, model.ErrImportTooLarge
	}

	batchNo := idgen.GenerateBatchNo()
	now := s.now()

	items := make([]*model.Compensation, 0, len(rows))
	for _, row := range rows {
		if c := reconcileRow(row, batchNo, now); c != nil {
			items = append(items, c)
		}
	}
	discarded := len(rows) - len(items)

	if len(items) == 0 {
		return nil, model.ErrEmptyImport
	}

	inserted, err := s.store.CreateBatch(ctx, items)
	if err != nil {
		s.log.Error("导入补偿失败", zap.String("batch_no", batchNo), zap.Int("rows", len(items)), zap.Error(err))
		return nil, storeErr(err)
	}

	s.metrics.ImportedRows.WithLabelValues(metrics.ImportInserted).Add(float64(inserted))
	s.metrics.ImportedRows.WithLabelValues(metrics.ImportDiscarded).Add(float64(discarded))
	s.log.Info("导入补偿",
		zap.String("batch_no", batchNo),
		zap.Int64("inserted", inserted),
		zap.Int("discarded", discarded),
	)
	return &ImportResult{
		Inserted:   inserted,
		Discarded:  discarded,
		BatchNo:    batchNo,
		FirstPhone: items[0].Phone,
	}, nil
}

// reconcileRow 单行转换，手机号为空返回 nil。
// 导入的手机号只做规范化不校验格式，历史数据里有不符合当前规则的号码。
func reconcileRow(row model.ImportRow, batchNo string, now time.Time) *model.Compensation {
	ph := phone.Normalize(row.Cell(phoneHeaders...))
	if ph == "" {
		return nil
	}

	coupon := row.Cell(descriptionHeaders...)
	if coupon == "" {
		coupon = model.ImportPlaceholderCoupon
	}

	batch := batchNo
	return &model.Compensation{
		Phone:       ph,
		Name:        row.Cell(nameHeaders...),
		CouponType:  coupon,
		Reason:      model.OptionalString(row.Cell(notesHeaders...)),
		Redeemed:    false,
		ImportBatch: &batch,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
