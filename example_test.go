package remap_test

import (
	"fmt"

	"github.com/openmapper/remap"
)

type User struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	Age       int
	Address   UserAddress
	Tags      []string
}

type UserAddress struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

type UserDTO struct {
	ID          int
	FirstName   string
	LastName    string
	Email       string
	Age         int
	AddressCity string // flattened from Address.City
	Tags        []string
}

type UserDetailDTO struct {
	ID      int
	Name    string // combined FirstName + LastName
	Email   string
	Address UserAddressDTO
}

type UserAddressDTO struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

func Example() {
	mapper := remap.New()
	remap.CreateMap[User, UserDTO](mapper)

	user := User{
		ID:        1,
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Age:       30,
		Address: UserAddress{
			Street:  "123 Main St",
			City:    "Boston",
			State:   "MA",
			ZipCode: "02101",
		},
		Tags: []string{"developer", "golang"},
	}

	dto, err := remap.Map[UserDTO](mapper, user)
	if err != nil {
		panic(err)
	}

	fmt.Printf("User: %s %s, Email: %s\n", dto.FirstName, dto.LastName, dto.Email)
	fmt.Printf("City: %s\n", dto.AddressCity)
	fmt.Printf("Tags: %v\n", dto.Tags)

	// Output:
	// User: John Doe, Email: john@example.com
	// City: Boston
	// Tags: [developer golang]
}

func Example_nestedMapping() {
	mapper := remap.New()
	remap.CreateMap[User, UserDetailDTO](mapper)
	remap.CreateMap[UserAddress, UserAddressDTO](mapper)

	user := User{
		ID:        1,
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane@example.com",
		Address: UserAddress{
			City:  "New York",
			State: "NY",
		},
	}

	dto, _ := remap.Map[UserDetailDTO](mapper, user)

	fmt.Printf("City: %s, State: %s\n", dto.Address.City, dto.Address.State)

	// Output:
	// City: New York, State: NY
}

func Example_customResolver() {
	mapper := remap.New()

	remap.CreateMap[User, UserDetailDTO](mapper).
		ForMemberByName("Name", remap.MapFromFunc(func(src any, dest any) (any, error) {
			u := src.(User)
			return u.FirstName + " " + u.LastName, nil
		}))

	user := User{FirstName: "John", LastName: "Doe"}

	dto, _ := remap.Map[UserDetailDTO](mapper, user)

	fmt.Printf("Name: %s\n", dto.Name)

	// Output:
	// Name: John Doe
}

func Example_sliceMapping() {
	mapper := remap.New()
	remap.CreateMap[User, UserDTO](mapper)

	users := []User{
		{ID: 1, FirstName: "John", Email: "john@example.com"},
		{ID: 2, FirstName: "Jane", Email: "jane@example.com"},
	}

	dtos, _ := remap.MapSlice[User, UserDTO](mapper, users)

	for _, dto := range dtos {
		fmt.Printf("User %d: %s\n", dto.ID, dto.FirstName)
	}

	// Output:
	// User 1: John
	// User 2: Jane
}

func Example_patch() {
	mapper := remap.New()

	type Product struct {
		Name  string
		Price int
	}
	type ProductPatch struct {
		Name  *string
		Price *int
	}

	name := "Widget Pro"
	update := ProductPatch{Name: &name} // Price left unset

	product := Product{Name: "Widget", Price: 50}
	if err := remap.PatchInto(mapper, update, &product); err != nil {
		panic(err)
	}

	fmt.Printf("%s costs %d\n", product.Name, product.Price)

	// Output:
	// Widget Pro costs 50
}
