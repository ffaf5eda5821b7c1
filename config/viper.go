package config

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/nodeconf/clog"
	"github.com/ceyewan/nodeconf/xerrors"
)

// reloadDelay 文件事件的合并窗口，避免读到写入一半的文件
const reloadDelay = 100 * time.Millisecond

// loader 实现 Loader 接口。
//
// vmu 保护对 Viper 实例的全部访问：Viper 本身不是并发安全的，
// 文件重载在监听协程中进行，读取可能来自任意协程。
type loader struct {
	v         *viper.Viper
	opts      *Config
	logger    clog.Logger
	vmu       sync.RWMutex
	file      string // 已加载的基础配置文件绝对路径，未找到时为空
	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

// newLoader 创建一个新的配置加载器（内部使用）
func newLoader(opts *Config) *loader {
	return &loader{
		v:         viper.New(),
		opts:      opts,
		logger:    opts.Logger,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// Load 初始化并从所有来源加载配置。找到配置文件时启动文件监听，
// 监听随 ctx 结束而停止。
func (l *loader) Load(ctx context.Context) error {
	if err := l.load(); err != nil {
		return err
	}

	l.captureCurrentValues()

	if l.file == "" {
		return nil
	}
	if err := l.watchFile(ctx, l.file); err != nil {
		l.logger.Warn("configuration file is not watched",
			clog.String("file", l.file), clog.Error(err))
	}
	l.logger.Info("configuration loaded", clog.String("file", l.file))
	return nil
}

func (l *loader) load() error {
	l.vmu.Lock()
	defer l.vmu.Unlock()

	// 1. 配置 Viper
	if l.opts.File != "" {
		l.v.SetConfigFile(l.opts.File)
		if ext := strings.TrimPrefix(filepath.Ext(l.opts.File), "."); ext != "" {
			l.v.SetConfigType(ext)
		} else {
			l.v.SetConfigType(l.opts.FileType)
		}
	} else {
		l.v.SetConfigName(l.opts.Name)
		l.v.SetConfigType(l.opts.FileType)
		for _, path := range l.opts.Paths {
			l.v.AddConfigPath(path)
		}
	}

	// 2. 环境变量设置
	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// 3. 命令行 flag（最高优先级）
	if l.opts.Flags != nil {
		if err := l.v.BindPFlags(l.opts.Flags); err != nil {
			return xerrors.Wrap(err, "failed to bind flags")
		}
	}

	// 4. .env 文件，不覆盖已存在的环境变量
	if err := l.loadDotEnv(); err != nil {
		l.logger.Debug("no .env file loaded", clog.Error(err))
	}

	// 5. 基础配置（最低优先级）
	if err := l.readConfig(); err != nil {
		return err
	}

	// 6. 环境特定配置
	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}

	return l.validate()
}

// readConfig 读取基础配置文件并记录其路径。
// 按名称搜索时找不到文件只告警，显式指定的文件不存在返回 ErrConfigNotFound。
func (l *loader) readConfig() error {
	if l.opts.File != "" {
		if _, err := os.Stat(l.opts.File); xerrors.Is(err, fs.ErrNotExist) {
			return xerrors.Wrapf(ErrConfigNotFound, "%s", l.opts.File)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !xerrors.As(err, &notFound) {
			return xerrors.Wrapf(err, "failed to read config file %s", l.source())
		}
		l.logger.Warn("no configuration file found",
			clog.String("name", l.opts.Name),
			clog.String("paths", strings.Join(l.opts.Paths, ",")))
		return nil
	}

	// 环境特定配置会改写 Viper 记录的文件名，这里先保存
	if used := l.v.ConfigFileUsed(); used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			used = abs
		}
		l.file = filepath.Clean(used)
	}
	return nil
}

// source 返回用于日志和错误信息的配置来源描述
func (l *loader) source() string {
	if l.opts.File != "" {
		return l.opts.File
	}
	return l.opts.Name
}

// watchFile 监听配置文件所在目录，文件被写入或重建后重新加载。
// 连续的事件在 reloadDelay 内合并为一次重载。
func (l *loader) watchFile(ctx context.Context, file string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "failed to create file watcher")
	}
	dir := filepath.Dir(file)
	if err := w.Add(dir); err != nil {
		w.Close()
		return xerrors.Wrapf(err, "failed to watch %s", dir)
	}

	go func() {
		defer w.Close()

		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		defer timer.Stop()

		var last fsnotify.Event
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != file || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				last = e
				timer.Reset(reloadDelay)
			case <-timer.C:
				l.reload(last)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("configuration watcher error", clog.Error(err))
			}
		}
	}()
	return nil
}

// reload 在写锁下重新读取配置文件，失败时保留原有配置
func (l *loader) reload(e fsnotify.Event) {
	l.vmu.Lock()
	err := l.v.ReadInConfig()
	if err == nil {
		err = l.loadEnvironmentConfig()
	}
	l.vmu.Unlock()

	if err != nil {
		l.logger.Error("failed to reload configuration",
			clog.String("file", e.Name), clog.Error(err))
		return
	}
	l.notifyWatches(e)
}

// loadDotEnv 尝试从工作目录和搜索路径加载 .env 文件
func (l *loader) loadDotEnv() error {
	var envLoaded bool
	var lastErr error

	candidates := []string{".env"}
	if l.opts.File != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(l.opts.File), ".env"))
	}
	for _, path := range l.opts.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, envPath := range candidates {
		if err := godotenv.Load(envPath); err == nil {
			envLoaded = true
		} else {
			lastErr = err
		}
	}

	if !envLoaded && lastErr != nil {
		return lastErr
	}
	return nil
}

// loadEnvironmentConfig 加载 <name>.<env>.<type> 形式的环境特定配置文件，
// env 取自 <PREFIX>_ENV。显式指定配置文件时覆盖文件与其同目录同扩展名。
// 调用方需持有 vmu 写锁。
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.opts.EnvPrefix))
	if env == "" {
		return nil
	}

	if l.opts.File != "" {
		return l.mergeEnvironmentFile(env)
	}

	originalName := l.opts.Name
	envConfigName := fmt.Sprintf("%s.%s", l.opts.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(originalName)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !xerrors.As(err, &notFound) {
			return xerrors.Wrapf(err, "failed to merge environment config %s", envConfigName)
		}
		l.logger.Debug("no environment configuration file found", clog.String("env", env))
		return nil
	}
	l.logger.Info("loaded environment configuration", clog.String("env", env))
	return nil
}

func (l *loader) mergeEnvironmentFile(env string) error {
	ext := filepath.Ext(l.opts.File)
	path := strings.TrimSuffix(l.opts.File, ext) + "." + env + ext

	data, err := os.ReadFile(path)
	if xerrors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("no environment configuration file found", clog.String("env", env))
		return nil
	}
	if err != nil {
		return xerrors.Wrapf(err, "failed to read environment config %s", path)
	}
	if err := l.v.MergeConfig(bytes.NewReader(data)); err != nil {
		return xerrors.Wrapf(err, "failed to merge environment config %s", path)
	}
	l.logger.Info("loaded environment configuration", clog.String("env", env), clog.String("file", path))
	return nil
}

// captureCurrentValues 保存当前配置值用于变更检测
func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.watches {
		l.oldValues[key] = l.Get(key)
	}
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.Get(key)
}

// IsSet 报告 key 是否已设置
func (l *loader) IsSet(key string) bool {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.IsSet(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.Unmarshal(v, viper.DecodeHook(decodeHook()))
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.UnmarshalKey(key, v, viper.DecodeHook(decodeHook()))
}

// decodeHook 支持 "5s" 形式的时长与逗号分隔的切片
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// Watch 订阅特定配置 key 的变更
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "watch key is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

// removeWatch 从注册表中移除并关闭监听通道
func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
}

// Validate 验证配置：文件、环境特定配置或已绑定的环境变量中至少设置了一个 key。
//
// 命令行 flag 只作为覆盖来源，不计入：BindPFlags 会让每个 flag 出现在
// AllKeys 中，即使没有任何配置文件也不会为空。
func (l *loader) Validate() error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.validate()
}

func (l *loader) validate() error {
	for _, key := range l.v.AllKeys() {
		if l.isFlag(key) {
			continue
		}
		if l.v.IsSet(key) {
			return nil
		}
	}
	return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
}

// isFlag 报告 key 是否来自绑定的命令行 flag
func (l *loader) isFlag(key string) bool {
	return l.opts.Flags != nil && l.opts.Flags.Lookup(key) != nil
}

// notifyWatches 通知所有值发生变化的监听者
func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel is full", clog.String("key", key))
			}
		}
	}
}
