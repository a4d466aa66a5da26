package models

// UnitKind 车辆单元类型
type UnitKind string

const (
	UnitHead    UnitKind = "head"
	UnitChassis UnitKind = "chassis"
	UnitStorage UnitKind = "storage"
)

// UnitRef 三选一的单元外键（inspections / problem_reports 共用）
type UnitRef struct {
	HeadID    *ID `json:"head_id"`
	ChassisID *ID `json:"chassis_id"`
	StorageID *ID `json:"storage_id"`
}

// Resolve 按 head -> chassis -> storage 的固定优先级返回第一个非空引用
func (r UnitRef) Resolve() (UnitKind, ID, bool) {
	switch {
	case IsSet(r.HeadID):
		return UnitHead, *r.HeadID, true
	case IsSet(r.ChassisID):
		return UnitChassis, *r.ChassisID, true
	case IsSet(r.StorageID):
		return UnitStorage, *r.StorageID, true
	}
	return "", "", false
}
