package service

import (
	"context"
	"time"

	"compsystem/internal/infrastructure/sheet"
	"compsystem/internal/model"
)

// ExportTimeLayout 导出文件中的时间格式
const ExportTimeLayout = "2006-01-02 15:04:05"

var exportStatus = map[string]string{
	model.StatusOpen:     "Open",
	model.StatusRedeemed: "Redeemed",
}

// BuildExportRows 按导出表头的列顺序生成每一行，时间按业务时区显示
func BuildExportRows(items []*model.Compensation, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{
			c.Phone,
			c.Name,
			c.CouponType,
			deref(c.Reason),
			deref(c.CreatedBy),
			c.CreatedAt.In(loc).Format(ExportTimeLayout),
			exportStatus[c.Status()],
			formatTime(c.RedeemedAt, loc),
			deref(c.RedeemedBy),
		})
	}
	return rows
}

// Export 导出当前筛选条件下的某一页
func (s *CompensationService) Export(ctx context.Context, filter model.ListFilter, page int) ([]byte, error) {
	p, err := s.Browse(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return sheet.WriteWorkbook(BuildExportRows(p.Items, s.loc))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(ExportTimeLayout)
}
