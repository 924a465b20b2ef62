package services

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"strings"
	"sync"
)

// 키 문자 집합: 대문자 알파벳 + 숫자 (문자당 36가지)
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	defaultKeySegments      = 5
	defaultKeySegmentLength = 4
)

// KeyGenerator 라이선스 키 생성기 (형식: XXXX-XXXX-XXXX-XXXX-XXXX).
// 전역 난수 소스 대신 인스턴스가 난수 상태를 소유하므로 테스트에서는 고정
// 시드로 결정적인 키 순열을 얻을 수 있다. 키는 암호학적 보증이 필요 없고
// 전역 유일성은 저장소의 UNIQUE 제약이 담당한다.
type KeyGenerator struct {
	mu       sync.Mutex
	rng      *mrand.Rand
	segments int
	length   int
}

// NewKeyGenerator 운영용 생성기. crypto/rand에서 얻은 시드로 초기화한다.
func NewKeyGenerator() *KeyGenerator {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand 실패는 사실상 발생하지 않지만, 발생하더라도
		// 키 품질 요구사항이 낮으므로 제로 시드로 계속 진행한다.
		_ = err
	}
	return NewSeededKeyGenerator(
		binary.LittleEndian.Uint64(seed[0:8]),
		binary.LittleEndian.Uint64(seed[8:16]),
	)
}

// NewSeededKeyGenerator 고정 시드 생성기 (테스트용)
func NewSeededKeyGenerator(seed1, seed2 uint64) *KeyGenerator {
	return &KeyGenerator{
		rng:      mrand.New(mrand.NewPCG(seed1, seed2)),
		segments: defaultKeySegments,
		length:   defaultKeySegmentLength,
	}
}

// WithLayout 세그먼트 수/길이를 조정한 생성기를 반환한다.
func (g *KeyGenerator) WithLayout(segments, length int) *KeyGenerator {
	if segments < 1 {
		segments = defaultKeySegments
	}
	if length < 1 {
		length = defaultKeySegmentLength
	}
	g.segments = segments
	g.length = length
	return g
}

// Generate 키 후보 문자열 생성. 전역 유일성 확인은 호출자 책임이다.
func (g *KeyGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(g.segments*g.length + g.segments - 1)

	for s := 0; s < g.segments; s++ {
		if s > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < g.length; i++ {
			b.WriteByte(keyAlphabet[g.rng.IntN(len(keyAlphabet))])
		}
	}

	return b.String()
}
