package assets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkquad/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V module")

// LoadShader reads a compiled SPIR-V module from disk.
func LoadShader(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSPIRV(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// ValidateSPIRV checks the size and the magic number of a module.
func ValidateSPIRV(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSPIRV)
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of 4", ErrInvalidSPIRV, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != SPIRVMagic {
		return fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidSPIRV, magic)
	}
	return nil
}

// AssetManager watches a shader directory and reports compiled modules that changed.
type AssetManager struct {
	mutex sync.Mutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	changes  chan string
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &AssetManager{
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		changes:  make(chan string, 16),
	}, nil
}

// Watch starts watching dir (non-recursively).
func (am *AssetManager) Watch(dir string) error {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if err := am.fsnotify.Add(dir); err != nil {
		return err
	}
	am.wg.Add(1)
	go am.start()
	core.LogDebug("watching %s for shader changes", dir)
	return nil
}

// Changes delivers the path of every .spv file that was created or written.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.mutex.Unlock()

	err := am.fsnotify.Close()
	am.wg.Wait()
	close(am.changes)
	return err
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || filepath.Ext(e.Name) != ".spv" {
				continue
			}
			select {
			case am.changes <- e.Name:
			case <-am.done:
				return
			default:
				// A reload is already pending, it will pick this file up too.
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}
