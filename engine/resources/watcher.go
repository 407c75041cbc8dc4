package resources

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/magma/engine/core"
)

type ShaderInfo struct {
	Path        string
	LastChanged time.Time
}

/**
 * @brief Watches a directory tree of compiled SPIR-V shaders and notifies
 * the renderer when one changes, so cached pipelines built from stale code
 * can be invalidated before the next flush.
 */
type ShaderWatcher struct {
	shaders map[string]ShaderInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool

	// Called once per changed shader file.
	onChange func(path string)
}

func NewShaderWatcher(onChange func(path string)) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderWatcher{
		shaders:  make(map[string]ShaderInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		onChange: onChange,
	}, nil
}

// Watch starts watching the shader directory and all sub-directories.
func (sw *ShaderWatcher) Watch(shaderDir string) error {
	if sw.isClosed {
		return errors.New("shader watcher already closed")
	}

	go sw.start()

	return sw.watchRecursive(shaderDir, false)
}

// Shaders returns a snapshot of the indexed shader files.
func (sw *ShaderWatcher) Shaders() []ShaderInfo {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	out := make([]ShaderInfo, 0, len(sw.shaders))
	for _, info := range sw.shaders {
		out = append(out, info)
	}
	return out
}

func (sw *ShaderWatcher) Close() {
	if sw.isClosed {
		return
	}
	sw.isClosed = true
	close(sw.done)
}

func (sw *ShaderWatcher) start() {
	for {
		select {

		case e := <-sw.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					sw.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				sw.handleFileEvent(e.Name, true)
			}
			if e.Op&fsnotify.Remove != 0 {
				sw.removeShader(e.Name)
				sw.fsnotify.Remove(e.Name)
			}

		case e := <-sw.fsnotify.Errors:
			if e != nil {
				core.LogError(e.Error())
			}

		case <-sw.done:
			sw.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the shader files already there.
func (sw *ShaderWatcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return sw.fsnotify.Remove(walkPath)
			}
			return sw.fsnotify.Add(walkPath)
		}
		// Index pre-existing shaders without firing change callbacks.
		sw.handleFileEvent(walkPath, false)
		return nil
	})
}

func (sw *ShaderWatcher) handleFileEvent(path string, notify bool) {
	if !isShaderFile(path) {
		return
	}

	sw.mutex.Lock()
	sw.shaders[path] = ShaderInfo{
		Path:        path,
		LastChanged: time.Now(),
	}
	sw.mutex.Unlock()

	if notify && sw.onChange != nil {
		core.LogInfo("shader %s changed", path)
		sw.onChange(path)
	}
}

func (sw *ShaderWatcher) removeShader(path string) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	delete(sw.shaders, path)
}

func isShaderFile(path string) bool {
	return filepath.Ext(path) == ".spv"
}
