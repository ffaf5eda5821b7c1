package nodeparams

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDefaults 测试默认构造的取值
func TestNewDefaults(t *testing.T) {
	p := New()

	assert.Equal(t, 6, p.Retries())
	assert.Equal(t, int64(10), p.RetryDelaySeconds())
	assert.Equal(t, 10*time.Second, p.RetryDelay())
	assert.False(t, p.Lazy())
	assert.Equal(t, DefaultServiceType, p.ServiceType())
	assert.Empty(t, p.Address())
	assert.Empty(t, p.AdminAddress())
	assert.Empty(t, p.Username())
	assert.Empty(t, p.Password())
}

// TestNewWith 测试全参数构造只覆盖六个连接字段
func TestNewWith(t *testing.T) {
	p := NewWith("localhost:10006", "user1", "test", "localhost:10046", 3, 5)

	assert.Equal(t, "localhost:10006", p.Address())
	assert.Equal(t, "user1", p.Username())
	assert.Equal(t, "test", p.Password())
	assert.Equal(t, "localhost:10046", p.AdminAddress())
	assert.Equal(t, 3, p.Retries())
	assert.Equal(t, int64(5), p.RetryDelaySeconds())
	assert.False(t, p.Lazy())
	assert.Equal(t, DefaultServiceType, p.ServiceType())
}

// TestAccessorRoundTrip 测试 setter 写入的值可由 getter 原样读出，且不做任何校验
func TestAccessorRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		set    func(p *NodeParams)
		verify func(t *testing.T, p *NodeParams)
	}{
		{
			name:   "address",
			set:    func(p *NodeParams) { p.SetAddress("10.0.0.1:10006") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, "10.0.0.1:10006", p.Address()) },
		},
		{
			name:   "empty address",
			set:    func(p *NodeParams) { p.SetAddress("") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, "", p.Address()) },
		},
		{
			name:   "admin address",
			set:    func(p *NodeParams) { p.SetAdminAddress("10.0.0.1:10046") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, "10.0.0.1:10046", p.AdminAddress()) },
		},
		{
			name:   "username",
			set:    func(p *NodeParams) { p.SetUsername("rpcuser") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, "rpcuser", p.Username()) },
		},
		{
			name:   "password",
			set:    func(p *NodeParams) { p.SetPassword("s3cr3t") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, "s3cr3t", p.Password()) },
		},
		{
			name:   "negative retries",
			set:    func(p *NodeParams) { p.SetRetries(-1) },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, -1, p.Retries()) },
		},
		{
			name:   "negative retry delay",
			set:    func(p *NodeParams) { p.SetRetryDelaySeconds(-30) },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, int64(-30), p.RetryDelaySeconds()) },
		},
		{
			name:   "lazy",
			set:    func(p *NodeParams) { p.SetLazy(true) },
			verify: func(t *testing.T, p *NodeParams) { assert.True(t, p.Lazy()) },
		},
		{
			name:   "service type",
			set:    func(p *NodeParams) { p.SetServiceType("custom") },
			verify: func(t *testing.T, p *NodeParams) { assert.Equal(t, ServiceType("custom"), p.ServiceType()) },
		},
		{
			name:   "empty service type",
			set:    func(p *NodeParams) { p.SetServiceType("") },
			verify: func(t *testing.T, p *NodeParams) { assert.True(t, p.ServiceType().IsZero()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			assert.NotPanics(t, func() { tt.set(p) })
			tt.verify(t, p)
		})
	}
}

// TestString 测试诊断字符串包含全部字段的当前值（包括明文密码）
func TestString(t *testing.T) {
	p := NewWith("localhost:10006", "user1", "test-pass", "localhost:10046", 3, 5)
	p.SetLazy(true)
	p.SetServiceType("custom")

	s := p.String()
	for _, want := range []string{
		`address="localhost:10006"`,
		`adminAddress="localhost:10046"`,
		`username="user1"`,
		`password="test-pass"`,
		`retries=3`,
		`retryDelaySeconds=5`,
		`lazy=true`,
		`serviceType="custom"`,
	} {
		assert.Contains(t, s, want)
	}

	assert.Equal(t,
		`NodeParams{address="", adminAddress="", username="", password="", retries=6, retryDelaySeconds=10, lazy=false, serviceType="default"}`,
		New().String())
}

// TestStringDeterministic 测试相同参数构造的实例输出相同的诊断字符串
func TestStringDeterministic(t *testing.T) {
	a := NewWith("a:1", "u", "p", "a:2", 1, 2)
	b := NewWith("a:1", "u", "p", "a:2", 1, 2)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a.Redacted(), b.Redacted())
	assert.True(t, a.Equal(b))
}

// TestRedacted 测试屏蔽后的字符串不包含密码
func TestRedacted(t *testing.T) {
	p := NewWith("localhost:10006", "user1", "test-pass", "", 6, 10)

	r := p.Redacted()
	assert.NotContains(t, r, "test-pass")
	assert.Contains(t, r, `password="****"`)
	assert.Contains(t, r, `username="user1"`)

	// 未设置的密码保持为空
	assert.Contains(t, New().Redacted(), `password=""`)
}

// TestLogValue 测试 slog 输出中密码被屏蔽
func TestLogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := NewWith("localhost:10006", "user1", "test-pass", "localhost:10046", 3, 5)
	logger.Info("node", slog.Any("node", p))

	assert.NotContains(t, buf.String(), "test-pass")

	var entry struct {
		Node map[string]any `json:"node"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "localhost:10006", entry.Node["address"])
	assert.Equal(t, "****", entry.Node["password"])
	assert.EqualValues(t, 3, entry.Node["retries"])
	assert.Equal(t, "default", entry.Node["service_type"])
}

// TestNilReceiver 测试 nil 实例的格式化方法不会 panic
func TestNilReceiver(t *testing.T) {
	var p *NodeParams
	assert.Equal(t, "NodeParams<nil>", p.String())
	assert.Equal(t, "NodeParams<nil>", p.Redacted())
	assert.Equal(t, "<nil>", p.LogValue().String())
	assert.Nil(t, p.Clone())
	assert.True(t, p.Equal(nil))
	assert.False(t, p.Equal(New()))
}

// TestNilReceiverAccessors 测试 nil 实例的 getter 返回默认值，setter 不 panic
func TestNilReceiverAccessors(t *testing.T) {
	var p *NodeParams

	assert.NotPanics(t, func() {
		assert.Equal(t, "", p.Address())
		assert.Equal(t, "", p.AdminAddress())
		assert.Equal(t, "", p.Username())
		assert.Equal(t, "", p.Password())
		assert.Equal(t, DefaultRetries, p.Retries())
		assert.Equal(t, DefaultRetryDelaySeconds, p.RetryDelaySeconds())
		assert.Equal(t, 10*time.Second, p.RetryDelay())
		assert.Equal(t, DefaultLazy, p.Lazy())
		assert.Equal(t, DefaultServiceType, p.ServiceType())
	})

	assert.NotPanics(t, func() {
		p.SetAddress("a:1")
		p.SetAdminAddress("a:2")
		p.SetUsername("u")
		p.SetPassword("p")
		p.SetRetries(1)
		p.SetRetryDelaySeconds(1)
		p.SetLazy(true)
		p.SetServiceType("custom")
	})
	assert.Equal(t, DefaultRetries, p.Retries())
	assert.Equal(t, "", New().Address())
}

// TestClone 测试副本与原值互不影响
func TestClone(t *testing.T) {
	p := NewWith("a:1", "u", "p", "a:2", 1, 2)
	c := p.Clone()
	require.True(t, p.Equal(c))

	c.SetPassword("changed")
	assert.Equal(t, "p", p.Password())
	assert.False(t, p.Equal(c))
}
