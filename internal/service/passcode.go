package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

// maxCodeLength ограничен диапазоном int64.
const maxCodeLength = 18

// GenerateCode возвращает строку из length десятичных цифр, равномерно распределённую.
// Ведущие нули допустимы. Ошибка источника случайности возвращается как есть.
func GenerateCode(length int) (string, error) {
	if length <= 0 || length > maxCodeLength {
		return "", fmt.Errorf("passcode: некорректная длина кода %d", length)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("passcode: источник случайности недоступен: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// PasscodeGenerator выпускает коды и считает их хеш для хранения.
// Хеш ключевой: BLAKE2b-256 с ключом, выведенным из серверного секрета.
type PasscodeGenerator struct {
	length int
	key    [32]byte
}

// NewPasscodeGenerator создаёт генератор кодов длины length с секретом secret.
func NewPasscodeGenerator(length int, secret string) *PasscodeGenerator {
	return &PasscodeGenerator{
		length: length,
		key:    blake2b.Sum256([]byte(secret)),
	}
}

// Length длина выпускаемых кодов.
func (g *PasscodeGenerator) Length() int {
	return g.length
}

// Generate выпускает новый код настроенной длины.
func (g *PasscodeGenerator) Generate() (string, error) {
	return GenerateCode(g.length)
}

// Hash детерминированно хеширует код.
func (g *PasscodeGenerator) Hash(code string) string {
	// Ключ всегда 32 байта, New256 с таким ключом ошибку не возвращает.
	h, err := blake2b.New256(g.key[:])
	if err != nil {
		panic(err)
	}
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

// Matches сравнивает хеш кандидата с сохранённым за постоянное время.
func (g *PasscodeGenerator) Matches(candidate, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(g.Hash(candidate)), []byte(storedHash)) == 1
}
