package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{"SELECT * FROM billing_cycles WHERE id = ?", "SELECT", "billing_cycles"},
		{"  insert into payments (id) values (1)", "INSERT", "payments"},
		{`UPDATE "billing_cycles" SET status = ?`, "UPDATE", "billing_cycles"},
		{"(DELETE FROM individual_charges WHERE id = 1)", "DELETE", "individual_charges"},
		{"", "UNKNOWN", ""},
		{"VACUUM", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerParamsFilterDropsValues(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig(false))
	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM units WHERE email = ?", "a@example.com")
	assert.Equal(t, "SELECT * FROM units WHERE email = ?", sql)
	assert.Nil(t, params)
}

func TestDefaultGormLoggerConfigDebug(t *testing.T) {
	assert.Equal(t, gormlogger.Info, DefaultGormLoggerConfig(true).Level)
	assert.Equal(t, gormlogger.Warn, DefaultGormLoggerConfig(false).Level)
}
