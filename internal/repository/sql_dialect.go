package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// shipDataSearchKeys 管理端关键字检索的物流字段
var shipDataSearchKeys = []string{"tracking_no", "company"}

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func jsonTextExprByDialect(dialect, column, key string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	default:
		return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
	}
}

// buildKeywordCondition 构建普通列 + JSON 列指定键的 LIKE 条件，并返回参数数量。
func buildKeywordCondition(db *gorm.DB, plainColumns []string, jsonColumn string, jsonKeys []string) (string, int) {
	return buildKeywordConditionByDialect(dbDialectName(db), plainColumns, jsonColumn, jsonKeys)
}

func buildKeywordConditionByDialect(dialect string, plainColumns []string, jsonColumn string, jsonKeys []string) (string, int) {
	parts := make([]string, 0, len(plainColumns)+len(jsonKeys))
	operator := likeOperatorByDialect(dialect)

	for _, column := range plainColumns {
		if trimmed := strings.TrimSpace(column); trimmed != "" {
			parts = append(parts, fmt.Sprintf("%s %s ?", trimmed, operator))
		}
	}
	if column := strings.TrimSpace(jsonColumn); column != "" {
		for _, key := range jsonKeys {
			parts = append(parts, fmt.Sprintf("%s %s ?", jsonTextExprByDialect(dialect, column, key), operator))
		}
	}
	return strings.Join(parts, " OR "), len(parts)
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// repeatLikeArgs 生成重复的 LIKE 参数列表。
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}
