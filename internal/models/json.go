package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSON 通用 JSON 字段（地址快照、物流信息、扩展信息）
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*j = make(JSON)
			return nil
		}
		return json.Unmarshal(v, j)
	case string:
		if v == "" {
			*j = make(JSON)
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// String 读取字符串字段
func (j JSON) String(key string) string {
	if j == nil {
		return ""
	}
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// Clone 复制一份，避免修改共享的 map
func (j JSON) Clone() JSON {
	out := make(JSON, len(j)+1)
	for k, v := range j {
		out[k] = v
	}
	return out
}
