// Package steamid packs and unpacks 64-bit Steam IDs.
//
// Layout, low bits first: account id (32), instance (20), account type (4),
// universe (8).
package steamid

import "fmt"

type Universe uint32

const (
	UniverseInvalid  Universe = 0
	UniversePublic   Universe = 1
	UniverseBeta     Universe = 2
	UniverseInternal Universe = 3
	UniverseDev      Universe = 4
)

type AccountType uint32

const (
	TypeInvalid        AccountType = 0
	TypeIndividual     AccountType = 1
	TypeMultiseat      AccountType = 2
	TypeGameServer     AccountType = 3
	TypeAnonGameServer AccountType = 4
	TypePending        AccountType = 5
	TypeContentServer  AccountType = 6
	TypeClan           AccountType = 7
	TypeChat           AccountType = 8
	TypeAnonUser       AccountType = 10
)

var typeLetters = map[AccountType]byte{
	TypeInvalid:        'I',
	TypeIndividual:     'U',
	TypeMultiseat:      'M',
	TypeGameServer:     'G',
	TypeAnonGameServer: 'A',
	TypePending:        'P',
	TypeContentServer:  'C',
	TypeClan:           'g',
	TypeChat:           'T',
	TypeAnonUser:       'a',
}

// ID is a packed Steam ID.
type ID uint64

func New(accountID, instance uint32, universe Universe, t AccountType) ID {
	return ID(uint64(accountID) |
		uint64(instance&0xFFFFF)<<32 |
		uint64(t&0xF)<<52 |
		uint64(universe&0xFF)<<56)
}

func (id ID) AccountID() uint32        { return uint32(id) }
func (id ID) Instance() uint32         { return uint32(id>>32) & 0xFFFFF }
func (id ID) AccountType() AccountType { return AccountType(id>>52) & 0xF }
func (id ID) Universe() Universe       { return Universe(id >> 56) }
func (id ID) IsValid() bool            { return id.AccountType() != TypeInvalid && id.Universe() != UniverseInvalid }
func (id ID) Uint64() uint64           { return uint64(id) }

// String renders the Steam3 form, e.g. [G:1:0].
func (id ID) String() string {
	letter, ok := typeLetters[id.AccountType()]
	if !ok {
		letter = 'i'
	}
	return fmt.Sprintf("[%c:%d:%d]", letter, id.Universe(), id.AccountID())
}
