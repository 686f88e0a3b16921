package modes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Modes map[Mode]Config `yaml:"modes"`
}

// LoadFile читает YAML с переопределениями режимов поверх встроенной
// таблицы. Режим из файла заменяет встроенный целиком; новые режимы
// добавляются. Пути полей разбираются здесь же, ошибка в них ломает загрузку.
//
//	modes:
//	  chat_with:
//	    budget: {character: 80, world: 10, project: 10}
//	    character:
//	      - {field: personality, priority: high}
//	      - {field: sampleDialogue, priority: high, path: voiceProfile.sampleDialogue, maxItems: 3}
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modes file: %w", err)
	}
	return Load(raw)
}

// Load как LoadFile, но из байтов.
func Load(raw []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}

	merged := builtin()
	for m, cfg := range f.Modes {
		if m == "" {
			return nil, fmt.Errorf("mode with empty name")
		}
		merged[m] = cfg
	}
	return build(merged)
}
