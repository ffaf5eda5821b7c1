package nodes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/nodeconf/config"
	"github.com/ceyewan/nodeconf/metrics"
	"github.com/ceyewan/nodeconf/nodeparams"
	"github.com/ceyewan/nodeconf/testkit"
	"github.com/ceyewan/nodeconf/xerrors"
)

type doc = map[string]any

func scrape(t *testing.T, meter metrics.Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	meter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func nodesDoc(nodes doc) doc {
	return doc{"nodeconf": doc{"nodes": nodes}}
}

// TestLoad 测试读取多个节点，缺省字段取默认值
func TestLoad(t *testing.T) {
	kit := testkit.NewKit(t)
	loader, _ := testkit.NewLoader(t, nodesDoc(doc{
		"partya": doc{
			"address":             "localhost:10006",
			"admin_address":       "localhost:10046",
			"username":            "user1",
			"password":            "test",
			"retries":             3,
			"retry_delay_seconds": 5,
			"lazy":                true,
			"service_type":        "custom",
		},
		"PartyB": doc{
			"address":              "localhost:10009",
			"primary_service_type": "legacy",
		},
	}))

	nodes, err := Load(loader, WithLogger(kit.Logger))
	require.NoError(t, err)
	require.Equal(t, 2, nodes.Len())
	assert.Equal(t, []string{"partya", "partyb"}, nodes.Names())

	a, ok := nodes.Get("partya")
	require.True(t, ok)
	want := nodeparams.NewWith("localhost:10006", "user1", "test", "localhost:10046", 3, 5)
	want.SetLazy(true)
	want.SetServiceType("custom")
	assert.True(t, want.Equal(a), "got %s", a)

	b, ok := nodes.Get("partyb")
	require.True(t, ok)
	assert.Equal(t, "localhost:10009", b.Address())
	assert.Equal(t, nodeparams.DefaultRetries, b.Retries())
	assert.Equal(t, nodeparams.DefaultRetryDelaySeconds, b.RetryDelaySeconds())
	assert.False(t, b.Lazy())
	assert.Equal(t, nodeparams.ServiceType("legacy"), b.ServiceType())

	_, ok = nodes.Get("partyc")
	assert.False(t, ok)
}

// TestLoadEnvOverride 测试环境变量覆盖单个字段
func TestLoadEnvOverride(t *testing.T) {
	loader, prefix := testkit.NewLoader(t, nodesDoc(doc{
		"partya": doc{"address": "localhost:10006", "password": "from-file"},
	}))
	t.Setenv(prefix+"_NODECONF_NODES_PARTYA_PASSWORD", "from-env")
	t.Setenv(prefix+"_NODECONF_NODES_PARTYA_RETRIES", "2")

	nodes, err := Load(loader)
	require.NoError(t, err)

	a, ok := nodes.Get("partya")
	require.True(t, ok)
	assert.Equal(t, "from-env", a.Password())
	assert.Equal(t, 2, a.Retries())
	assert.Equal(t, "localhost:10006", a.Address())
}

// TestLoadCustomKey 测试自定义根 key 与缺失根 key
func TestLoadCustomKey(t *testing.T) {
	loader, _ := testkit.NewLoader(t, doc{
		"spring-corda": doc{"nodes": doc{"partya": doc{"address": "localhost:10006"}}},
	})

	nodes, err := Load(loader, WithKey("spring-corda.nodes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"partya"}, nodes.Names())

	empty, err := Load(loader)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "Nodes{}", empty.String())
}

// TestLoadNullNode 测试只有名字的节点取全部默认值
func TestLoadNullNode(t *testing.T) {
	loader, _ := testkit.NewLoader(t, nodesDoc(doc{
		"partya": nil,
		"partyb": doc{"address": "localhost:10009"},
	}))

	nodes, err := Load(loader)
	require.NoError(t, err)
	require.Equal(t, 2, nodes.Len())
	a, ok := nodes.Get("partya")
	require.True(t, ok)
	assert.True(t, nodeparams.New().Equal(a))
}

// TestLoadDecodeErrors 测试类型不匹配时返回 ErrDecode
func TestLoadDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  doc
	}{
		{name: "nodes is a scalar", doc: doc{"nodeconf": doc{"nodes": "oops"}}},
		{name: "node is a scalar", doc: nodesDoc(doc{"partya": 5})},
		{name: "retries not a number", doc: nodesDoc(doc{"partya": doc{"retries": "many"}})},
		{name: "lazy not a bool", doc: nodesDoc(doc{"partya": doc{"lazy": "sometimes"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := testkit.NewLoader(t, tt.doc)
			_, err := Load(loader)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
			assert.True(t, config.IsInvalidInput(err))
			assert.Equal(t, CodeDecode, xerrors.GetCode(err))
		})
	}
}

// TestLoadAcceptsAnyValue 测试负数与空字符串被原样接受
func TestLoadAcceptsAnyValue(t *testing.T) {
	loader, _ := testkit.NewLoader(t, nodesDoc(doc{
		"partya": doc{"address": "", "retries": -1, "retry_delay_seconds": -10},
	}))

	nodes, err := Load(loader)
	require.NoError(t, err)
	a, _ := nodes.Get("partya")
	assert.Equal(t, "", a.Address())
	assert.Equal(t, -1, a.Retries())
	assert.Equal(t, int64(-10), a.RetryDelaySeconds())
}

// TestNodesSnapshot 测试快照与调用方数据互不影响
func TestNodesSnapshot(t *testing.T) {
	p := nodeparams.NewWith("a:1", "u", "secret", "", 1, 1)
	nodes := New(map[string]*nodeparams.NodeParams{"partya": p, "partyb": nil})

	p.SetAddress("mutated")
	got, _ := nodes.Get("partya")
	assert.Equal(t, "a:1", got.Address())

	got.SetAddress("mutated again")
	again, _ := nodes.Get("partya")
	assert.Equal(t, "a:1", again.Address())

	all := nodes.All()
	assert.Len(t, all, 2)
	assert.True(t, nodeparams.New().Equal(all["partyb"]))

	s := nodes.String()
	assert.Contains(t, s, "partya: NodeParams{")
	assert.NotContains(t, s, "secret")
	assert.NotContains(t, nodes.LogValue().String(), "secret")
}

// TestDiff 测试快照比较
func TestDiff(t *testing.T) {
	prev := New(map[string]*nodeparams.NodeParams{
		"a": nodeparams.NewWith("a:1", "u", "p", "", 1, 1),
		"b": nodeparams.NewWith("b:1", "u", "p", "", 1, 1),
		"c": nodeparams.NewWith("c:1", "u", "p", "", 1, 1),
	})
	next := New(map[string]*nodeparams.NodeParams{
		"a": nodeparams.NewWith("a:1", "u", "p", "", 1, 1),
		"b": nodeparams.NewWith("b:1", "u", "changed", "", 1, 1),
		"d": nodeparams.NewWith("d:1", "u", "p", "", 1, 1),
	})

	added, removed, changed := Diff(prev, next)
	assert.Equal(t, []string{"d"}, added)
	assert.Equal(t, []string{"c"}, removed)
	assert.Equal(t, []string{"b"}, changed)

	added, removed, changed = Diff(nil, prev)
	assert.Equal(t, []string{"a", "b", "c"}, added)
	assert.Empty(t, removed)
	assert.Empty(t, changed)
}

// TestWatch 测试配置文件变化后推送新快照
func TestWatch(t *testing.T) {
	dir := t.TempDir()
	testkit.WriteYAML(t, dir, "config.yaml", nodesDoc(doc{
		"partya": doc{"address": "localhost:10006"},
	}))

	ctx, cancel := testkit.NewContext(t, 10*time.Second)
	defer cancel()

	loader, err := config.New(config.WithConfigPaths(dir), config.WithEnvPrefix("NODECONF_TEST_"+testkit.NewID()))
	require.NoError(t, err)
	require.NoError(t, loader.Load(ctx))

	ch, err := Watch(ctx, loader, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, []string{"partya"}, first.Names())

	testkit.WriteYAML(t, dir, "config.yaml", nodesDoc(doc{
		"partya": doc{"address": "localhost:10007"},
		"partyb": doc{"address": "localhost:10009"},
	}))

	select {
	case next := <-ch:
		assert.Equal(t, []string{"partya", "partyb"}, next.Names())
		a, _ := next.Get("partya")
		assert.Equal(t, "localhost:10007", a.Address())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for nodes snapshot")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

// TestWatchReloadError 测试重载失败时保留上一个快照，并记录监听与变化指标
func TestWatchReloadError(t *testing.T) {
	meter, err := metrics.New(&metrics.Config{Enabled: true})
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	dir := t.TempDir()
	testkit.WriteYAML(t, dir, "config.yaml", nodesDoc(doc{
		"partya": doc{"address": "localhost:10006"},
	}))

	ctx, cancel := testkit.NewContext(t, 10*time.Second)
	defer cancel()

	loader, err := config.New(config.WithConfigPaths(dir), config.WithEnvPrefix("NODECONF_TEST_"+testkit.NewID()))
	require.NoError(t, err)
	require.NoError(t, loader.Load(ctx))

	ch, err := Watch(ctx, loader, WithMeter(meter))
	require.NoError(t, err)
	first := <-ch
	assert.Equal(t, []string{"partya"}, first.Names())
	assert.Regexp(t, `nodeconf_nodes_watchers\{[^}]*key="nodeconf.nodes"[^}]*\} 1`, scrape(t, meter))

	testkit.WriteYAML(t, dir, "config.yaml", nodesDoc(doc{"partya": 5}))
	select {
	case next := <-ch:
		t.Fatalf("unexpected snapshot after failed reload: %v", next)
	case <-time.After(time.Second):
	}

	testkit.WriteYAML(t, dir, "config.yaml", nodesDoc(doc{
		"partya": doc{"address": "localhost:10007"},
		"partyb": doc{"address": "localhost:10009"},
	}))
	select {
	case next := <-ch:
		assert.Equal(t, []string{"partya", "partyb"}, next.Names())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for nodes snapshot")
	}

	text := scrape(t, meter)
	assert.Regexp(t, `nodeconf_nodes_loads_total\{[^}]*op="reload"[^}]*result="error"[^}]*\} 1`, text)
	assert.Regexp(t, `nodeconf_nodes_loads_total\{[^}]*op="reload"[^}]*result="ok"[^}]*\} 1`, text)
	assert.Regexp(t, `nodeconf_nodes_changes_total\{[^}]*kind="added"[^}]*\} 1`, text)
	assert.Regexp(t, `nodeconf_nodes_changes_total\{[^}]*kind="changed"[^}]*\} 1`, text)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			if ok {
				return false
			}
		default:
			return false
		}
		return regexp.MustCompile(`nodeconf_nodes_watchers\{[^}]*key="nodeconf.nodes"[^}]*\} 0`).
			MatchString(scrape(t, meter))
	}, 2*time.Second, 10*time.Millisecond)
}

// TestWatchInitialError 测试初始加载失败时 Watch 返回错误
func TestWatchInitialError(t *testing.T) {
	loader, _ := testkit.NewLoader(t, doc{"nodeconf": doc{"nodes": "oops"}})
	_, err := Watch(context.Background(), loader)
	assert.ErrorIs(t, err, ErrDecode)
}

// TestLoadMetrics 测试加载结果写入指标
func TestLoadMetrics(t *testing.T) {
	meter, err := metrics.New(&metrics.Config{Enabled: true})
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	good, _ := testkit.NewLoader(t, nodesDoc(doc{
		"partya": doc{"address": "localhost:10006"},
		"partyb": doc{"address": "localhost:10009"},
	}))
	_, err = Load(good, WithMeter(meter))
	require.NoError(t, err)

	bad, _ := testkit.NewLoader(t, nodesDoc(doc{"partya": 5}))
	_, err = Load(bad, WithMeter(meter))
	require.Error(t, err)

	text := scrape(t, meter)
	assert.Regexp(t, `nodeconf_nodes_loads_total\{[^}]*result="ok"[^}]*\} 1`, text)
	assert.Regexp(t, `nodeconf_nodes_loads_total\{[^}]*result="error"[^}]*\} 1`, text)
	assert.Regexp(t, `nodeconf_nodes_configured(\{[^}]*\})? 2`, text)
	assert.Contains(t, text, "nodeconf_nodes_load_duration_seconds")
}
