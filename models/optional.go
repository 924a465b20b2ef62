package models

import "encoding/json"

// OptionalString JSON 바디에서 "필드 없음"과 "null"을 구분하기 위한 타입.
// Set은 필드가 바디에 존재했는지, Valid는 값이 null이 아닌지를 나타낸다.
type OptionalString struct {
	Set   bool
	Valid bool
	Value string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// OptionalInt OptionalString의 정수 버전
type OptionalInt struct {
	Set   bool
	Valid bool
	Value int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}
