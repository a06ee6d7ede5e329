package bundle

import "os"

// ReadNetlist loads a netlist file as text.
func ReadNetlist(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
