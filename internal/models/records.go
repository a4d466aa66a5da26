package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// 固定取值
const (
	ConditionNotGood = "tidak_baik"   // inspection_results.kondisi
	RoleAdminMobile  = "admin_mobile" // profiles.role，广播接收人

	TableInspectionResults  = "inspection_results"
	TableProblemReports     = "problem_reports"
	TableMaintenanceRecords = "maintenance_records"
)

// ID 行主键（数据库可能是 bigint 或 uuid，触发器 JSON 中可能是数字或字符串）
type ID string

// UnmarshalJSON 同时接受 JSON 字符串和数字
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// IsSet 判断可空 ID 是否有值
func IsSet(id *ID) bool {
	return id != nil && *id != ""
}

// InspectionResult inspection_results 行（handler 1 的触发行）
type InspectionResult struct {
	ID           ID     `json:"id"`
	InspectionID ID     `json:"inspection_id"`
	ItemID       ID     `json:"item_id"`
	Kondisi      string `json:"kondisi"`
}

// Inspection inspections 行
// IsNotified 是单向标记：false -> true，不会被重置
type Inspection struct {
	ID          ID   `json:"id"`
	InspectorID *ID  `json:"inspector_id"`
	IsNotified  bool `json:"is_notified"`
	UnitRef
}

// ProblemReport problem_reports 行（handler 2 的触发行）
type ProblemReport struct {
	ID           ID     `json:"id"`
	CustomTitle  string `json:"custom_title"`
	ReportedByID *ID    `json:"reported_by_id"`
	UnitRef
}

// MaintenanceRecord maintenance_records 行（handler 3 的触发行）
// ProblemReportID 与 InspectionResultID 只会设置其中一个
type MaintenanceRecord struct {
	ID                 ID  `json:"id"`
	ProblemReportID    *ID `json:"problem_report_id"`
	InspectionResultID *ID `json:"inspection_result_id"`
	RepairedByID       *ID `json:"repaired_by_id"`
}

// Profile profiles 行
type Profile struct {
	ID       ID
	Role     string
	FCMToken *string
	Name     string
}
