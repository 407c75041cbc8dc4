package resources

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/magma/engine/core"
)

const spirvMagic uint32 = 0x07230203

// LoadSPIRV reads a compiled SPIR-V blob from disk and returns it as the
// word slice shader module creation expects. The magic number and word
// alignment are validated; everything else is left to the driver.
func LoadSPIRV(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read shader %s: %s", path, err.Error())
		return nil, err
	}

	if len(raw) == 0 || len(raw)%4 != 0 {
		err := fmt.Errorf("shader %s is not a SPIR-V blob, size %d is not word aligned", path, len(raw))
		core.LogError(err.Error())
		return nil, err
	}

	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	if words[0] != spirvMagic {
		err := fmt.Errorf("shader %s has bad SPIR-V magic 0x%08x", path, words[0])
		core.LogError(err.Error())
		return nil, err
	}

	return words, nil
}
