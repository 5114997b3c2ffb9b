package services

import "time"

// SetTagCodeGenerator replaces the random tag code generator.
func SetTagCodeGenerator(s *TagService, fn func(prefix string) (string, error)) {
	s.newCode = fn
}

// SetOTPClock replaces the clock used for issuing and expiring codes.
func SetOTPClock(s *OTPService, now func() time.Time) {
	s.now = now
}

// SetContactClock replaces the clock used to stamp contact events.
func SetContactClock(s *ContactService, now func() time.Time) {
	s.now = now
}

var GenerateTagCode = generateTagCode
var GenerateOTP = generateOTP
