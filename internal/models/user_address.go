package models

import (
	"strings"
	"time"
)

// UserAddress 用户收货地址
type UserAddress struct {
	ID           uint       `gorm:"primarykey" json:"id"`                       // 主键
	UserID       uint       `gorm:"index;not null" json:"user_id"`              // 用户ID
	Province     string     `gorm:"type:varchar(64)" json:"province"`           // 省
	City         string     `gorm:"type:varchar(64)" json:"city"`               // 市
	District     string     `gorm:"type:varchar(64)" json:"district"`           // 区
	Address      string     `gorm:"type:varchar(255);not null" json:"address"`  // 详细地址
	Zip          string     `gorm:"type:varchar(16)" json:"zip"`                // 邮编
	ContactName  string     `gorm:"type:varchar(64)" json:"contact_name"`       // 联系人
	ContactPhone string     `gorm:"type:varchar(32)" json:"contact_phone"`      // 联系电话
	LastUsedAt   *time.Time `json:"last_used_at"`                               // 最近使用时间
	CreatedAt    time.Time  `json:"created_at"`                                 // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                 // 更新时间
}

// TableName 指定表名
func (UserAddress) TableName() string {
	return "user_addresses"
}

// FullAddress 拼接完整地址
func (a *UserAddress) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Province, a.City, a.District, a.Address} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "")
}

// Snapshot 生成订单地址快照
func (a *UserAddress) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Address:      a.FullAddress(),
		Zip:          a.Zip,
		ContactName:  a.ContactName,
		ContactPhone: a.ContactPhone,
	}
}
